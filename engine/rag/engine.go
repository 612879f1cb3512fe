package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/knowledge/retriever"
	"github.com/compozy/coursepilot/engine/llm"
	"github.com/compozy/coursepilot/pkg/logger"
)

// Options tune a single answer call. Zero values fall back to the retriever
// defaults.
type Options struct {
	TopK     int
	MinScore float64
	Filters  map[string]string
}

// Source identifies one retrieved context that informed the answer.
type Source struct {
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Answer is the result of one retrieval-augmented generation call.
// UsedContext is false when nothing relevant was retrieved and the model
// answered from the question alone.
type Answer struct {
	Text        string   `json:"answer"`
	Sources     []Source `json:"sources"`
	UsedContext bool     `json:"used_context"`
}

// Engine wires retrieval and generation into a single answer call.
type Engine struct {
	retriever    *retriever.Service
	llm          *llm.Client
	promptHeader string
}

func NewEngine(ret *retriever.Service, client *llm.Client, promptHeader string) (*Engine, error) {
	if ret == nil {
		return nil, errors.New("rag: retriever is required")
	}
	if client == nil {
		return nil, errors.New("rag: llm client is required")
	}
	return &Engine{
		retriever:    ret,
		llm:          client,
		promptHeader: promptHeader,
	}, nil
}

// Answer retrieves the top contexts for the query, assembles the prompt, and
// runs a single completion. Stage failures keep their taxonomy: embedding
// errors satisfy core.ErrEmbedding, search errors core.ErrRetrieval, and
// completion errors core.ErrGeneration.
func (e *Engine) Answer(ctx context.Context, query string, opts Options) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("rag: query is required: %w", core.ErrInvalidInput)
	}
	log := logger.FromContext(ctx)
	contexts, err := e.retriever.Retrieve(ctx, query, retriever.Options{
		TopK:     opts.TopK,
		MinScore: opts.MinScore,
		Filters:  opts.Filters,
	})
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		log.Debug("no contexts retrieved, answering without context", "query_length", len(query))
	}
	prompt := buildPrompt(e.promptHeader, contexts, query)
	text, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, len(contexts))
	for i := range contexts {
		sources[i] = Source{
			Score:    contexts[i].Score,
			Metadata: core.CloneMap(contexts[i].Metadata),
		}
	}
	return &Answer{
		Text:        text,
		Sources:     sources,
		UsedContext: len(contexts) > 0,
	}, nil
}
