package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/coursepilot/engine/knowledge/ingest"
	"github.com/compozy/coursepilot/engine/knowledge/retriever"
	"github.com/compozy/coursepilot/engine/knowledge/vectordb"
	"github.com/compozy/coursepilot/engine/llm"
	"github.com/compozy/coursepilot/engine/loader/youtube"
	"github.com/compozy/coursepilot/engine/rag"
)

type hashEmbedder struct{}

func (hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text)
	}
	return out, nil
}

func (hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return hashVector(text), nil
}

func (hashEmbedder) Dimension() int { return 3 }

func hashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	return []float32{float32(sum[0]) + 1, float32(sum[1]) + 1, float32(sum[2]) + 1}
}

type stubChannelLoader struct {
	report *youtube.Report
	err    error

	channelID string
	maxVideos int64
}

func (s *stubChannelLoader) LoadChannel(_ context.Context, channelID string, maxVideos int64) (*youtube.Report, error) {
	s.channelID = channelID
	s.maxVideos = maxVideos
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func newTestRouter(t *testing.T, mock *llm.Mock, yt ChannelLoader) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	store, err := vectordb.New(ctx, &vectordb.Config{
		ID:        "kb",
		Provider:  vectordb.ProviderMemory,
		Dimension: 3,
	})
	require.NoError(t, err)
	pipeline, err := ingest.NewPipeline(hashEmbedder{}, store, ingest.Config{
		ChunkSize:    500,
		ChunkOverlap: 100,
	})
	require.NoError(t, err)
	service, err := retriever.NewService(hashEmbedder{}, store, nil, retriever.Options{TopK: 5, MaxTokens: 4000})
	require.NoError(t, err)
	client, err := llm.Wrap(&llm.Config{Provider: llm.ProviderGoogleAI, Model: "gemini-1.5-pro"}, mock)
	require.NoError(t, err)
	engine, err := rag.NewEngine(service, client, "")
	require.NoError(t, err)
	return NewRouter(&Dependencies{
		Ingest:           pipeline,
		RAG:              engine,
		PDF:              nil,
		YouTube:          yt,
		DefaultChannelID: "default-channel",
	}, nil)
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

func TestHandlers(t *testing.T) {
	t.Run("ShouldReportHealth", func(t *testing.T) {
		router := newTestRouter(t, &llm.Mock{Response: "ok"}, nil)
		recorder := doJSON(router, http.MethodGet, "/api/v0/health", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "ok", decodeBody(t, recorder)["status"])
	})

	t.Run("ShouldIngestAndDeleteDocument", func(t *testing.T) {
		router := newTestRouter(t, &llm.Mock{Response: "ok"}, nil)
		recorder := doJSON(router, http.MethodPost, "/api/v0/documents", gin.H{
			"text":     "The sky is blue.",
			"metadata": gin.H{"source": "facts.txt"},
		})
		require.Equal(t, http.StatusCreated, recorder.Code)
		docID, ok := decodeBody(t, recorder)["document_id"].(string)
		require.True(t, ok)
		require.NotEmpty(t, docID)

		listRecorder := doJSON(router, http.MethodGet, "/api/v0/documents", nil)
		require.Equal(t, http.StatusOK, listRecorder.Code)
		assert.Equal(t, float64(1), decodeBody(t, listRecorder)["count"])

		deleteRecorder := doJSON(router, http.MethodDelete, "/api/v0/documents/"+docID, nil)
		require.Equal(t, http.StatusNoContent, deleteRecorder.Code)

		again := doJSON(router, http.MethodDelete, "/api/v0/documents/"+docID, nil)
		require.Equal(t, http.StatusNotFound, again.Code)
		assert.Equal(t, codeDocumentNotFound, decodeBody(t, again)["code"])
	})

	t.Run("ShouldRejectIngestWithoutText", func(t *testing.T) {
		router := newTestRouter(t, &llm.Mock{Response: "ok"}, nil)
		recorder := doJSON(router, http.MethodPost, "/api/v0/documents", gin.H{"metadata": gin.H{}})
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, codeInvalidInput, decodeBody(t, recorder)["code"])
	})

	t.Run("ShouldAnswerQuery", func(t *testing.T) {
		mock := &llm.Mock{Response: "The sky is blue."}
		router := newTestRouter(t, mock, nil)
		ingestRecorder := doJSON(router, http.MethodPost, "/api/v0/documents", gin.H{"text": "The sky is blue."})
		require.Equal(t, http.StatusCreated, ingestRecorder.Code)

		recorder := doJSON(router, http.MethodPost, "/api/v0/query", gin.H{"query": "The sky is blue."})
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "The sky is blue.", body["answer"])
		assert.Equal(t, true, body["used_context"])
	})

	t.Run("ShouldSurfaceGenerationFailureAsBadGateway", func(t *testing.T) {
		mock := &llm.Mock{Err: assert.AnError}
		router := newTestRouter(t, mock, nil)
		recorder := doJSON(router, http.MethodPost, "/api/v0/query", gin.H{"query": "anything"})
		require.Equal(t, http.StatusBadGateway, recorder.Code)
		assert.Equal(t, codeGenerationFailed, decodeBody(t, recorder)["code"])
	})

	t.Run("ShouldEchoChatSession", func(t *testing.T) {
		router := newTestRouter(t, &llm.Mock{Response: "Hello."}, nil)
		recorder := doJSON(router, http.MethodPost, "/api/v0/chat", gin.H{
			"message":    "Hi",
			"session_id": "session-42",
		})
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "Hello.", body["response"])
		assert.Equal(t, "session-42", body["session_id"])
	})

	t.Run("ShouldGenerateChatSessionWhenMissing", func(t *testing.T) {
		router := newTestRouter(t, &llm.Mock{Response: "Hello."}, nil)
		recorder := doJSON(router, http.MethodPost, "/api/v0/chat", gin.H{"message": "Hi"})
		require.Equal(t, http.StatusOK, recorder.Code)
		sessionID, ok := decodeBody(t, recorder)["session_id"].(string)
		require.True(t, ok)
		assert.NotEmpty(t, sessionID)
	})

	t.Run("ShouldLoadYouTubeChannel", func(t *testing.T) {
		stub := &stubChannelLoader{report: &youtube.Report{
			DocumentIDs: []string{"doc-1", "doc-2"},
			Skipped: []youtube.SkippedVideo{
				{VideoID: "v3", Title: "No captions", Reason: "no transcript available"},
			},
		}}
		router := newTestRouter(t, &llm.Mock{Response: "ok"}, stub)
		recorder := doJSON(router, http.MethodPost, "/api/v0/youtube/load", gin.H{"max_videos": 5})
		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Len(t, body["document_ids"], 2)
		assert.Len(t, body["skipped"], 1)
		assert.Equal(t, "default-channel", stub.channelID)
		assert.Equal(t, int64(5), stub.maxVideos)
	})

	t.Run("ShouldRejectYouTubeLoadWhenNotConfigured", func(t *testing.T) {
		router := newTestRouter(t, &llm.Mock{Response: "ok"}, nil)
		recorder := doJSON(router, http.MethodPost, "/api/v0/youtube/load", gin.H{})
		require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		assert.Equal(t, codeNotConfigured, decodeBody(t, recorder)["code"])
	})

	t.Run("ShouldAllowConfiguredCORSOrigin", func(t *testing.T) {
		corsRouter := gin.New()
		corsRouter.Use(corsMiddleware([]string{"https://app.example.com"}))
		corsRouter.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/ping", strings.NewReader(""))
		req.Header.Set("Origin", "https://app.example.com")
		recorder := httptest.NewRecorder()
		corsRouter.ServeHTTP(recorder, req)
		assert.Equal(t, "https://app.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))

		denied := httptest.NewRequest(http.MethodGet, "/ping", strings.NewReader(""))
		denied.Header.Set("Origin", "https://evil.example.com")
		deniedRecorder := httptest.NewRecorder()
		corsRouter.ServeHTTP(deniedRecorder, denied)
		assert.Empty(t, deniedRecorder.Header().Get("Access-Control-Allow-Origin"))
	})
}
