package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/coursepilot/engine/loader"
)

func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a text or PDF file into the vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			path := args[0]
			var fileLoader loader.Loader
			if strings.EqualFold(filepath.Ext(path), ".pdf") {
				fileLoader = loader.NewPDFLoader()
			} else {
				fileLoader = loader.NewTextLoader()
			}
			doc, err := fileLoader.Load(ctx, path)
			if err != nil {
				return err
			}
			docID, err := a.pipeline.IngestDocument(ctx, doc)
			if err != nil {
				return err
			}
			info, _ := a.pipeline.Document(docID)
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s as document %s (%d chunks)\n", path, docID, info.Chunks)
			return nil
		},
	}
}
