package cli

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coursepilot",
		Short:         "Retrieval-augmented question answering over course material",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	root.AddCommand(
		ServeCmd(),
		ChatCmd(),
		IngestCmd(),
		YouTubeCmd(),
	)

	return root
}
