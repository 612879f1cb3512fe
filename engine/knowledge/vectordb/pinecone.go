package vectordb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/compozy/coursepilot/engine/core"
)

const pineconeDefaultTimeout = 30 * time.Second

// pineconeStore talks to a Pinecone index over its data-plane REST API.
// The DSN is the index host URL reported by the Pinecone console.
type pineconeStore struct {
	client    *resty.Client
	namespace string
	dimension int
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeErrorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func newPineconeStore(cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vector_db config is required")
	}
	base := strings.TrimRight(cfg.DSN, "/")
	if base == "" {
		return nil, fmt.Errorf("vector_db %q: pinecone dsn is required", cfg.ID)
	}
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	apiKey := cfg.Auth["api_key"]
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("vector_db %q: pinecone api key is required", cfg.ID)
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(pineconeDefaultTimeout).
		SetHeader("Api-Key", apiKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	return &pineconeStore{
		client:    client,
		namespace: cfg.Namespace,
		dimension: cfg.Dimension,
	}, nil
}

func (p *pineconeStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]pineconeVector, 0, len(records))
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != p.dimension {
			return fmt.Errorf(
				"pinecone: record %q dimension mismatch (got %d want %d)",
				rec.ID,
				len(rec.Embedding),
				p.dimension,
			)
		}
		metadata := core.CloneMap(rec.Metadata)
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["text"] = rec.Text
		vectors = append(vectors, pineconeVector{
			ID:       rec.ID,
			Values:   rec.Embedding,
			Metadata: metadata,
		})
	}
	body := map[string]any{"vectors": vectors}
	if p.namespace != "" {
		body["namespace"] = p.namespace
	}
	return p.doRequest(ctx, "/vectors/upsert", body, nil)
}

func (p *pineconeStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != p.dimension {
		return nil, fmt.Errorf("pinecone: query dimension mismatch (got %d want %d)", len(query), p.dimension)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	body := map[string]any{
		"vector":          query,
		"topK":            topK,
		"includeMetadata": true,
	}
	if p.namespace != "" {
		body["namespace"] = p.namespace
	}
	if filter := buildPineconeFilter(opts.Filters); filter != nil {
		body["filter"] = filter
	}
	var response struct {
		Matches []pineconeMatch `json:"matches"`
	}
	if err := p.doRequest(ctx, "/query", body, &response); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(response.Matches))
	for _, res := range response.Matches {
		if res.Score < opts.MinScore {
			continue
		}
		metadata := core.CloneMap(res.Metadata)
		if metadata == nil {
			metadata = make(map[string]any)
		}
		text := ""
		if raw, ok := metadata["text"].(string); ok {
			text = raw
			delete(metadata, "text")
		}
		matches = append(matches, Match{
			ID:       res.ID,
			Score:    res.Score,
			Text:     text,
			Metadata: metadata,
		})
	}
	return matches, nil
}

func (p *pineconeStore) Delete(ctx context.Context, filter Filter) error {
	body := map[string]any{}
	if len(filter.IDs) > 0 {
		body["ids"] = filter.IDs
	}
	if f := buildPineconeFilter(filter.Metadata); f != nil {
		body["filter"] = f
	}
	if len(body) == 0 {
		return nil
	}
	if p.namespace != "" {
		body["namespace"] = p.namespace
	}
	return p.doRequest(ctx, "/vectors/delete", body, nil)
}

func (p *pineconeStore) Close(context.Context) error {
	return nil
}

// buildPineconeFilter translates flat key/value filters into Pinecone's
// $eq match syntax.
func buildPineconeFilter(filters map[string]string) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	out := make(map[string]any, len(filters))
	for key, val := range filters {
		out[key] = map[string]any{"$eq": val}
	}
	return out
}

func (p *pineconeStore) doRequest(ctx context.Context, path string, body, out any) error {
	req := p.client.R().SetContext(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	var apiErr pineconeErrorBody
	req.SetError(&apiErr)
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("pinecone: request %s failed: %w", path, err)
	}
	if resp.IsError() {
		message := apiErr.Message
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		return fmt.Errorf("pinecone: request %s failed with status %d: %s", path, resp.StatusCode(), message)
	}
	return nil
}
