package retriever

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator approximates how many LLM tokens a text consumes.
type TokenEstimator interface {
	EstimateTokens(ctx context.Context, text string) int
}

// runeEstimator is the fallback heuristic of roughly four runes per token.
type runeEstimator struct{}

func (runeEstimator) EstimateTokens(_ context.Context, text string) int {
	count := len([]rune(text))
	if count == 0 {
		return 0
	}
	tokens := count / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

type tiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

func (t *tiktokenEstimator) EstimateTokens(_ context.Context, text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// NewTokenEstimator returns a tiktoken-backed estimator for the model,
// falling back to cl100k_base and finally to the rune heuristic when the
// encoding data is unavailable.
func NewTokenEstimator(model string) TokenEstimator {
	if model != "" {
		if encoding, err := tiktoken.EncodingForModel(model); err == nil {
			return &tiktokenEstimator{encoding: encoding}
		}
	}
	if encoding, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return &tiktokenEstimator{encoding: encoding}
	}
	return runeEstimator{}
}
