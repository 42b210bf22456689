package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed PDFs",
	Long: `Send one message through the chat pipeline, exactly as the HTTP API would.
"populate" and "clear" are treated as commands; anything else is a question.

Examples:
  pdfrag ask "What is the candidate's email?"
  pdfrag ask populate`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, true, log)
	if err != nil {
		return err
	}
	defer a.Close()

	reply, err := a.controller.Handle(cmd.Context(), strings.Join(args, " "))
	fmt.Println(reply.Text)
	if len(reply.Sources) > 0 {
		fmt.Printf("Sources: [%s]\n", strings.Join(reply.Sources, ", "))
	}
	if err != nil && !errors.Is(err, domain.ErrGeneration) {
		return err
	}
	return nil
}
