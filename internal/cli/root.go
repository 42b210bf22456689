package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdfrag/config"
	logpkg "pdfrag/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about a folder of PDFs",
	Long: `pdfrag indexes the PDFs in a data directory into a local vector store and
answers questions about them with a language model, citing the passages it used.

Example usage:
  pdfrag populate                          # Index ./data into .pdfrag/index.db
  pdfrag ask "What is the candidate's email?"
  pdfrag search -q "work experience"       # Show retrieved passages only
  pdfrag serve                             # Start the chat API on :8000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		env := cfg.Logging.Env
		if e := os.Getenv("PDFRAG_ENV"); e != "" {
			env = e
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log, err = logpkg.NewLogger(env, level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pdfrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
