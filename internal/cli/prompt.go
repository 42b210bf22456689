package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	promptQuery string
	promptTopK  int
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent to the language model",
	Long: `Retrieve passages for a question and render the generation prompt without
calling the model. Useful for checking retrieval and the token budget, or for
pasting into another model by hand.

Examples:
  pdfrag prompt -q "What is the candidate's email?"`,
	RunE: runPromptCmd,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question (required)")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "number of passages (default from config)")
	_ = promptCmd.MarkFlagRequired("query")
}

func runPromptCmd(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := cfg.Retrieve.TopK
	if promptTopK > 0 {
		topK = promptTopK
	}

	results, err := a.retriever.Retrieve(cmd.Context(), promptQuery, topK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	p, err := a.generator.Prompt(promptQuery, results)
	if err != nil {
		return err
	}

	fmt.Println(p.Text)
	fmt.Fprintf(os.Stderr, "\n%d passages, ~%d context tokens of %d; sources: [%s]\n",
		len(p.Used), p.UsedTokens, cfg.Generate.TokenBudget, strings.Join(p.Sources(), ", "))
	return nil
}
