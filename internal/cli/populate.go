package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pdfrag/internal/usecase"
)

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Index the PDFs in the data directory",
	Long: `Read every PDF under the data directory, split pages into overlapping chunks,
embed the chunks that are not stored yet and add them to the vector store.
Running it again on an unchanged directory adds nothing.`,
	Args: cobra.NoArgs,
	RunE: runPopulate,
}

func init() {
	rootCmd.AddCommand(populateCmd)
}

func runPopulate(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg, rootDir, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	existing, err := a.store.Count()
	if err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}
	fmt.Printf("Number of existing chunks in DB: %d\n", existing)
	fmt.Printf("Scanning %s...\n", cfg.DataDir(rootDir))

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	a.populate.OnProgress(func(done, total int, file string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Populating[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(done)

		elapsed := time.Since(startTime)
		rate := float64(done) / elapsed.Seconds()
		if rate > 0 && done < total {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Populating[reset] ETA: %s", formatDuration(eta)))
		}
	})

	start := time.Now()
	report, err := a.controller.Populate(cmd.Context())
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("populate failed: %w", err)
	}

	fmt.Printf("Files: %d read, %d failed, %d pages\n", report.FilesLoaded, len(report.Failures), report.Pages)
	for _, f := range report.Failures {
		fmt.Printf("  skipped %s: %v\n", f.Path, f.Err)
	}
	if report.ChunksAdded > 0 {
		fmt.Printf("Adding new documents: %d\n", report.ChunksAdded)
	} else {
		fmt.Println("No new documents to add")
	}
	fmt.Println(usecase.PopulateSummary(report))
	fmt.Printf("Done in %s\n", formatDuration(time.Since(start)))
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
