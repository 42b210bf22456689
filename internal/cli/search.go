package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchText string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the passages retrieved for a query",
	Long: `Embed a query and list the most similar indexed chunks, without calling the language model.

Examples:
  pdfrag search -q "work experience"
  pdfrag search -q "email" --top-k 8 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	_ = searchCmd.MarkFlagRequired("query")
}

// SearchResult is one retrieved chunk as printed by search.
type SearchResult struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	results, err := a.retriever.Retrieve(cmd.Context(), searchText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			ID:     r.Chunk.ID,
			Source: r.Chunk.Source,
			Page:   r.Chunk.Page,
			Score:  r.Score,
			Text:   r.Chunk.Text,
		}
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range out {
		fmt.Printf("[%d] %s (page %d) score %.3f\n", i+1, r.ID, r.Page, r.Score)
		fmt.Printf("    %s\n\n", indent(strings.TrimSpace(r.Text), "    "))
	}
	return nil
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
