package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-dev/lectern/internal/core/domain"
)

var (
	searchTopK      int
	searchDocument  string
	searchPage      int
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed lecture material",
	Long: `Performs hybrid retrieval over the indexed corpus.
Dense vector similarity and BM25 keyword matching run in parallel;
chunks found by both rank above single-source matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "restrict to one document ID")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 0, "restrict the dense leg to one page")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum dense similarity score")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	threshold := searchThreshold
	if !cmd.Flags().Changed("threshold") {
		threshold = scoreThreshold
	}

	opts := domain.RetrieveOptions{
		TopK:           searchTopK,
		DocumentID:     searchDocument,
		Page:           searchPage,
		ScoreThreshold: threshold,
	}

	result, err := retrievalService.Retrieve(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchText(cmd, result)
}

// searchResultJSON is the stable JSON shape for one result.
type searchResultJSON struct {
	Rank       int     `json:"rank"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Method     string  `json:"method"`
	Content    string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, result *domain.RetrievalResult) error {
	out := struct {
		Degraded bool               `json:"degraded"`
		Results  []searchResultJSON `json:"results"`
	}{
		Degraded: result.Degraded,
		Results:  make([]searchResultJSON, 0, len(result.Chunks)),
	}
	for _, rc := range result.Chunks {
		out.Results = append(out.Results, searchResultJSON{
			Rank:       rc.Rank,
			ChunkID:    rc.Chunk.ID,
			DocumentID: rc.Chunk.DocumentID,
			Page:       rc.Chunk.Page,
			Score:      rc.Score,
			Method:     string(rc.Method),
			Content:    rc.Chunk.Content,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if result.Degraded {
		cmd.PrintErrln("Warning: one retrieval source was unavailable, results are partial.")
	}
	if len(result.Chunks) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for _, rc := range result.Chunks {
		cmd.Printf("  [%d] %s p.%d (%.3f, %s)\n", rc.Rank, rc.Chunk.DocumentID, rc.Chunk.Page, rc.Score, rc.Method)
		cmd.Printf("      %s\n\n", snippet(rc.Chunk.Content, 200))
	}
	return nil
}

// snippet truncates content for terminal display.
func snippet(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
