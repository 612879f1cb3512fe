package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/loader"
	"github.com/compozy/coursepilot/pkg/logger"
)

const (
	defaultMaxVideos         = 20
	defaultRequestsPerSecond = 4
)

// Pipeline is the ingestion half the channel loader feeds into.
type Pipeline interface {
	IngestDocument(ctx context.Context, doc *loader.Document) (string, error)
}

// Config captures the settings for the YouTube loader.
type Config struct {
	APIKey            string
	MaxVideos         int64
	RequestsPerSecond float64
	TranscriptBaseURL string
	Language          string
}

// SkippedVideo records a video left out of a channel load and why.
type SkippedVideo struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Reason  string `json:"reason"`
}

// Report summarizes a channel load: documents ingested plus videos skipped.
type Report struct {
	DocumentIDs []string       `json:"document_ids"`
	Skipped     []SkippedVideo `json:"skipped"`
}

// Loader turns YouTube videos into documents via the Data API and the
// timedtext transcript endpoint.
type Loader struct {
	service     *ytapi.Service
	transcripts *transcriptClient
	pipeline    Pipeline
	limiter     *rate.Limiter
	maxVideos   int64
}

func New(ctx context.Context, cfg Config, pipeline Pipeline) (*Loader, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("youtube: api key is required")
	}
	if pipeline == nil {
		return nil, errors.New("youtube: ingest pipeline is required")
	}
	service, err := ytapi.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: initialize data api client: %w", err)
	}
	maxVideos := cfg.MaxVideos
	if maxVideos <= 0 {
		maxVideos = defaultMaxVideos
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &Loader{
		service:     service,
		transcripts: newTranscriptClient(cfg.TranscriptBaseURL, cfg.Language),
		pipeline:    pipeline,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		maxVideos:   maxVideos,
	}, nil
}

// Load fetches a single video's transcript and snippet metadata.
func (l *Loader) Load(ctx context.Context, videoID string) (*loader.Document, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("youtube: video id is required: %w", core.ErrInvalidInput)
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	response, err := l.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: fetch video %q: %w: %w", videoID, core.ErrLoader, err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("youtube: video %q not found: %w", videoID, core.ErrLoader)
	}
	snippet := response.Items[0].Snippet
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	transcript, err := l.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w: %w", core.ErrLoader, err)
	}
	return &loader.Document{
		Text: transcript,
		Metadata: map[string]any{
			"source":       "https://www.youtube.com/watch?v=" + videoID,
			"loader":       "youtube",
			"video_id":     videoID,
			"title":        snippet.Title,
			"channel_id":   snippet.ChannelId,
			"published_at": snippet.PublishedAt,
		},
	}, nil
}

// LoadChannel ingests the most recent videos of a channel. Videos without a
// transcript are skipped and reported, not fatal.
func (l *Loader) LoadChannel(ctx context.Context, channelID string, maxVideos int64) (*Report, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("youtube: channel id is required: %w", core.ErrInvalidInput)
	}
	limit := maxVideos
	if limit <= 0 || limit > l.maxVideos {
		limit = l.maxVideos
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	search, err := l.service.Search.List([]string{"id", "snippet"}).
		ChannelId(channelID).
		Order("date").
		Type("video").
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: search channel %q: %w: %w", channelID, core.ErrLoader, err)
	}
	log := logger.FromContext(ctx).With("channel_id", channelID)
	report := &Report{}
	for _, item := range search.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		videoID := item.Id.VideoId
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		docID, loadErr := l.loadAndIngest(ctx, videoID, title, channelID)
		if loadErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("skipping video", "video_id", videoID, "reason", loadErr)
			report.Skipped = append(report.Skipped, SkippedVideo{
				VideoID: videoID,
				Title:   title,
				Reason:  loadErr.Error(),
			})
			continue
		}
		report.DocumentIDs = append(report.DocumentIDs, docID)
	}
	log.Info(
		"channel load finished",
		"ingested", len(report.DocumentIDs),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func (l *Loader) loadAndIngest(ctx context.Context, videoID, title, channelID string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	transcript, err := l.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return "", err
	}
	doc := &loader.Document{
		Text: transcript,
		Metadata: map[string]any{
			"source":     "https://www.youtube.com/watch?v=" + videoID,
			"loader":     "youtube",
			"video_id":   videoID,
			"title":      title,
			"channel_id": channelID,
		},
	}
	return l.pipeline.IngestDocument(ctx, doc)
}
