package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf...]",
	Short: "Ingest PDF files into the index",
	Long: `Extracts text from each PDF, chunks it, embeds the chunks and adds
them to the vector and keyword indexes. Failed files are reported and
skipped; the remaining files are still processed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := context.Background()
	failed := 0

	for _, path := range args {
		doc, err := ingestService.Ingest(ctx, path)
		if err != nil {
			failed++
			cmd.PrintErrf("✗ %s: %v\n", path, err)
			continue
		}
		cmd.Printf("✓ %s -> %s (%d pages, %s)\n", path, doc.ID, doc.PageCount, doc.Status)
	}

	saveLexical()

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
