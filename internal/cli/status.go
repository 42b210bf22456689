package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"pdfrag/internal/port"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, model and configuration status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, true, log)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Data directory: %s\n", cfg.DataDir(rootDir))
	fmt.Printf("Chunking:       %d chars, %d overlap (%s extractor)\n", cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Data.Extractor)

	if d, ok := a.store.(port.Describer); ok {
		info, err := d.Describe()
		if err != nil {
			return fmt.Errorf("failed to describe store: %w", err)
		}
		fmt.Printf("Store:          %s at %s (schema v%d)\n", info.Driver, info.Path, info.SchemaVersion)
		fmt.Printf("Records:        %d\n", info.Records)
		if info.Dimension > 0 {
			fmt.Printf("Vectors:        %d dims from %s\n", info.Dimension, info.Model)
		}
	} else {
		n, err := a.store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Store:          %s\n", cfg.Store.Driver)
		fmt.Printf("Records:        %d\n", n)
	}

	fmt.Printf("Embedding:      %s %s (%d dims)\n", cfg.Embedding.Provider, a.embedder.ModelName(), a.embedder.Dimension())
	fmt.Printf("LLM:            %s %s\n", cfg.LLM.Provider, a.llm.ModelName())

	pingers := a.pingers()
	names := make([]string, 0, len(pingers))
	for name := range pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		err := pingers[name].Ping(ctx)
		cancel()
		if err != nil {
			fmt.Printf("Ping %-10s  unreachable: %v\n", name, err)
			continue
		}
		fmt.Printf("Ping %-10s  ok\n", name)
	}
	return nil
}
