package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptClient(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldJoinAndUnescapeLines", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "abc123", r.URL.Query().Get("v"))
			assert.Equal(t, "en", r.URL.Query().Get("lang"))
			w.Header().Set("Content-Type", "text/xml")
			w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">Welcome to the course.</text>
  <text start="2.5" dur="3.0">Today we cover vectors &amp; matrices.</text>
  <text start="5.5" dur="1.0">  </text>
</transcript>`))
		}))
		defer server.Close()

		client := newTranscriptClient(server.URL, "")
		transcript, err := client.Fetch(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, "Welcome to the course. Today we cover vectors & matrices.", transcript)
	})

	t.Run("ShouldReportMissingTranscript", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newTranscriptClient(server.URL, "en")
		_, err := client.Fetch(ctx, "abc123")
		require.Error(t, err)
		assert.ErrorIs(t, err, errNoTranscript)
	})

	t.Run("ShouldFailOnUpstreamError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTranscriptClient(server.URL, "en")
		_, err := client.Fetch(ctx, "abc123")
		require.Error(t, err)
	})
}
