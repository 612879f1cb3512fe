package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/coursepilot/engine/rag"
)

func ChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Ask a question, or type \"exit\" to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					continue
				}
				if query == "exit" || query == "quit" {
					break
				}
				answer, err := a.engine.Answer(ctx, query, rag.Options{})
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				fmt.Fprintln(out, answer.Text)
				if answer.UsedContext {
					fmt.Fprintf(out, "(answered from %d context snippets)\n", len(answer.Sources))
				}
			}
			return scanner.Err()
		},
	}
}
