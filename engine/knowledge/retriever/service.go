package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/knowledge/embedder"
	"github.com/compozy/coursepilot/engine/knowledge/vectordb"
	"github.com/compozy/coursepilot/pkg/logger"
)

// Options controls a single retrieval call. Zero values fall back to the
// service defaults.
type Options struct {
	TopK      int
	MinScore  float64
	Filters   map[string]string
	MaxTokens int
}

// RetrievedContext is one scored context snippet ready for prompt assembly.
type RetrievedContext struct {
	Content       string
	Score         float64
	TokenEstimate int
	Metadata      map[string]any
}

// Service embeds queries and runs similarity search against the vector store,
// returning contexts ordered by descending score within a token budget.
type Service struct {
	embedder  embedder.Embedder
	store     vectordb.Store
	estimator TokenEstimator
	defaults  Options
}

func NewService(emb embedder.Embedder, store vectordb.Store, estimator TokenEstimator, defaults Options) (*Service, error) {
	if emb == nil {
		return nil, errors.New("retriever: embedder is required")
	}
	if store == nil {
		return nil, errors.New("retriever: vector store is required")
	}
	if estimator == nil {
		estimator = runeEstimator{}
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 5
	}
	return &Service{
		embedder:  emb,
		store:     store,
		estimator: estimator,
		defaults:  defaults,
	}, nil
}

func (s *Service) Retrieve(ctx context.Context, query string, opts Options) ([]RetrievedContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("retriever: query is required: %w", core.ErrInvalidInput)
	}
	log := logger.FromContext(ctx)
	start := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	searchOpts := s.buildSearchOptions(opts)
	matches, err := s.store.Search(ctx, vector, searchOpts)
	if err != nil {
		return nil, fmt.Errorf("retriever: search: %w: %w", core.ErrRetrieval, err)
	}
	if len(matches) == 0 {
		log.Debug("retrieval returned no matches", "query_length", len(query))
		return nil, nil
	}
	sortMatches(matches)
	contexts := s.buildContexts(ctx, matches, opts)
	log.Debug(
		"retrieval finished",
		"results", len(contexts),
		"top_k", searchOpts.TopK,
		"duration", time.Since(start),
	)
	return contexts, nil
}

func (s *Service) buildSearchOptions(opts Options) vectordb.SearchOptions {
	out := vectordb.SearchOptions{
		TopK:     opts.TopK,
		MinScore: opts.MinScore,
		Filters:  cloneFilters(opts.Filters),
	}
	if out.TopK <= 0 {
		out.TopK = s.defaults.TopK
	}
	if out.MinScore <= 0 {
		out.MinScore = s.defaults.MinScore
	}
	return out
}

func (s *Service) buildContexts(ctx context.Context, matches []vectordb.Match, opts Options) []RetrievedContext {
	contexts := make([]RetrievedContext, len(matches))
	tokenCounts := make([]int, len(matches))
	totalTokens := 0
	for i := range matches {
		tokens := s.estimator.EstimateTokens(ctx, matches[i].Text)
		totalTokens += tokens
		tokenCounts[i] = tokens
		contexts[i] = RetrievedContext{
			Content:       matches[i].Text,
			Score:         matches[i].Score,
			TokenEstimate: tokens,
			Metadata:      core.CloneMap(matches[i].Metadata),
		}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.defaults.MaxTokens
	}
	return trimContexts(contexts, tokenCounts, totalTokens, maxTokens)
}

// trimContexts drops the lowest scored contexts until the budget holds.
func trimContexts(contexts []RetrievedContext, tokenCounts []int, totalTokens, maxTokens int) []RetrievedContext {
	if maxTokens <= 0 {
		return contexts
	}
	for totalTokens > maxTokens && len(contexts) > 0 {
		last := len(contexts) - 1
		totalTokens -= tokenCounts[last]
		contexts = contexts[:last]
		tokenCounts = tokenCounts[:last]
	}
	return contexts
}

func sortMatches(matches []vectordb.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
}

func cloneFilters(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
