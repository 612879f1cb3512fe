package youtube

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTranscriptBaseURL = "https://video.google.com/timedtext"
	defaultLanguage          = "en"
	transcriptTimeout        = 15 * time.Second
)

var errNoTranscript = errors.New("no transcript available")

// transcriptClient fetches video captions from the timedtext endpoint.
type transcriptClient struct {
	client   *resty.Client
	language string
}

type timedTextDocument struct {
	XMLName xml.Name        `xml:"transcript"`
	Lines   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func newTranscriptClient(baseURL, language string) *transcriptClient {
	if baseURL == "" {
		baseURL = defaultTranscriptBaseURL
	}
	if language == "" {
		language = defaultLanguage
	}
	return &transcriptClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(transcriptTimeout),
		language: language,
	}
}

// Fetch returns the full transcript text for a video, or errNoTranscript
// when the video has no captions in the configured language.
func (c *transcriptClient) Fetch(ctx context.Context, videoID string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"v":    videoID,
			"lang": c.language,
		}).
		Get("")
	if err != nil {
		return "", fmt.Errorf("youtube: fetch transcript for %q: %w", videoID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("youtube: transcript request for %q failed with status %d", videoID, resp.StatusCode())
	}
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", fmt.Errorf("youtube: video %q: %w", videoID, errNoTranscript)
	}
	var doc timedTextDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("youtube: decode transcript for %q: %w", videoID, err)
	}
	parts := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("youtube: video %q: %w", videoID, errNoTranscript)
	}
	return strings.Join(parts, " "), nil
}
