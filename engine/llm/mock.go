package llm

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Mock is an llms.Model stand-in for tests. It records every prompt it
// receives and replies with a fixed response or error.
type Mock struct {
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
}

var _ llms.Model = (*Mock)(nil)

func (m *Mock) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	m.record(flattenMessages(messages))
	if m.Err != nil {
		return nil, m.Err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.Response}},
	}, nil
}

func (m *Mock) Call(_ context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	m.record(prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Prompts returns every prompt the mock has seen, in order.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

func (m *Mock) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}

func flattenMessages(messages []llms.MessageContent) string {
	var prompt string
	for _, message := range messages {
		for _, part := range message.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	return prompt
}
