package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
	Long:  `List, inspect, reprocess or delete ingested documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsReprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Re-run chunking and indexing for a document",
	Long:  `Replaces the document's chunks, vectors and keyword postings wholesale.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsReprocess,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its index state",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsReprocessCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if docStore == nil {
		return errors.New("document store not configured")
	}

	docs, err := docStore.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	for _, doc := range docs {
		cmd.Printf("  %s  %-30s  %3d pages  %s\n", doc.ID, doc.Name, doc.PageCount, doc.Status)
	}
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	if docStore == nil {
		return errors.New("document store not configured")
	}

	ctx := context.Background()
	doc, err := docStore.GetDocument(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	chunks, err := docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	cmd.Printf("ID:       %s\n", doc.ID)
	cmd.Printf("Name:     %s\n", doc.Name)
	cmd.Printf("Pages:    %d\n", doc.PageCount)
	cmd.Printf("Status:   %s\n", doc.Status)
	if doc.FailureReason != "" {
		cmd.Printf("Failure:  %s\n", doc.FailureReason)
	}
	cmd.Printf("Chunks:   %d\n", len(chunks))
	cmd.Printf("Created:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runDocumentsReprocess(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.Reprocess(context.Background(), args[0]); err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}
	saveLexical()
	cmd.Printf("Reprocessed %s\n", args[0])
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	saveLexical()
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
