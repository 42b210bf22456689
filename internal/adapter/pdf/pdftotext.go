package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// PdftotextExtractor shells out to poppler's pdftotext, which copes with
// layouts and encodings the pure-Go parser gets wrong.
type PdftotextExtractor struct {
	runner CommandRunner
}

func NewPdftotextExtractor() *PdftotextExtractor {
	return &PdftotextExtractor{runner: execRunner{}}
}

func NewPdftotextExtractorWithRunner(runner CommandRunner) *PdftotextExtractor {
	return &PdftotextExtractor{runner: runner}
}

// CheckPdftotext reports whether the pdftotext binary is installed.
func CheckPdftotext() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

func (e *PdftotextExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	return splitPages(string(out)), nil
}

// splitPages splits pdftotext output on form feeds. Every page, the last
// included, is terminated by one, so a trailing empty piece is dropped.
func splitPages(out string) []string {
	pages := strings.Split(out, "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}
