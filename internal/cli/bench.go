package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	benchQueries []string
	benchTopK    int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Rate retrieval quality for a few queries",
	Long: `Run queries against the vector store and rate how similar the retrieved
chunks are. A quick check that the embedding model and index fit the documents.

Examples:
  pdfrag bench -q "email address" -q "work experience"`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringArrayVarP(&benchQueries, "query", "q", nil, "query to test (repeatable, required)")
	benchCmd.Flags().IntVarP(&benchTopK, "top-k", "k", 0, "number of results (default from config)")
	_ = benchCmd.MarkFlagRequired("query")
}

func runBench(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.store.Count()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("the store is empty; run 'pdfrag populate' first")
	}

	topK := cfg.Retrieve.TopK
	if benchTopK > 0 {
		topK = benchTopK
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", count)
	fmt.Printf("Model: %s (%s), %d dims\n\n", a.embedder.ModelName(), cfg.Embedding.Provider, a.embedder.Dimension())

	var total float64
	var n int
	for _, q := range benchQueries {
		fmt.Printf("Query: %q\n", q)
		fmt.Println(strings.Repeat("-", 70))

		results, err := a.retriever.Retrieve(cmd.Context(), q, topK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		for i, r := range results {
			preview := truncate(strings.ReplaceAll(r.Chunk.Text, "\n", " "), 150)
			fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating(r.Score), r.Score, r.Chunk.ID)
			fmt.Printf("   %s\n\n", preview)
			total += r.Score
			n++
		}
	}

	if n == 0 {
		fmt.Println("No results.")
		return nil
	}

	avg := total / float64(n)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Average similarity: %.3f\n", avg)
	switch {
	case avg > 0.5:
		fmt.Println("Status: GOOD - retrieval finds closely related passages")
	case avg > 0.3:
		fmt.Println("Status: OK - results are somewhat related")
	default:
		fmt.Println("Status: POOR - try another embedding model or chunk size")
	}
	return nil
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
