package rag

import (
	"fmt"
	"strings"

	"github.com/compozy/coursepilot/engine/knowledge/retriever"
)

const defaultPromptHeader = "Use the following context to answer the question. " +
	"If the context does not contain the answer, say that you do not know."

// buildPrompt assembles the completion prompt from numbered context blocks
// and the user question.
func buildPrompt(header string, contexts []retriever.RetrievedContext, question string) string {
	if header == "" {
		header = defaultPromptHeader
	}
	var builder strings.Builder
	builder.WriteString(header)
	builder.WriteString("\n\n")
	for i, context := range contexts {
		fmt.Fprintf(&builder, "Context %d:\n%s\n\n", i+1, context.Content)
	}
	fmt.Fprintf(&builder, "Question: %s\nAnswer:", question)
	return builder.String()
}
