package pdf

import (
	"context"
	"errors"
	"iter"
	"os"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// Extractor returns the text of every page of a PDF, in page order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Loader discovers PDFs under a directory and streams their pages.
type Loader struct {
	walker    port.FileWalker
	extractor Extractor
	logger    *zap.Logger
}

func NewLoader(walker port.FileWalker, extractor Extractor, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{walker: walker, extractor: extractor, logger: logger}
}

// Discover lists the PDFs under root. A missing root is an ingestion error.
func (l *Loader) Discover(root string) ([]port.FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, domain.NewIngestionError(root, err)
	}
	if !info.IsDir() {
		return nil, domain.NewIngestionError(root, errors.New("not a directory"))
	}

	files, err := l.walker.Walk(root)
	if err != nil {
		return nil, domain.NewIngestionError(root, err)
	}
	l.logger.Debug("Discovered documents", zap.String("root", root), zap.Int("files", len(files)))
	return files, nil
}

// Pages yields every page of every file in order. Sources are the files'
// relative paths. A file that cannot be read yields a single
// *domain.IngestionError and iteration moves on to the next file.
func (l *Loader) Pages(ctx context.Context, files []port.FileInfo) iter.Seq2[domain.Page, error] {
	return func(yield func(domain.Page, error) bool) {
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				yield(domain.Page{}, err)
				return
			}

			texts, err := l.extractor.Extract(ctx, f.Path)
			if err != nil {
				if ctx.Err() != nil {
					yield(domain.Page{}, ctx.Err())
					return
				}
				if !yield(domain.Page{}, domain.NewIngestionError(f.RelPath, err)) {
					return
				}
				continue
			}

			doc := domain.Document{Path: f.RelPath, PageCount: len(texts)}
			l.logger.Debug("Loaded document", zap.String("path", doc.Path), zap.Int("pages", doc.PageCount))

			for i, text := range texts {
				page := domain.Page{Source: doc.Path, Number: i + 1, Text: text}
				if !yield(page, nil) {
					return
				}
			}
		}
	}
}

// Load is Discover followed by Pages.
func (l *Loader) Load(ctx context.Context, root string) (iter.Seq2[domain.Page, error], error) {
	files, err := l.Discover(root)
	if err != nil {
		return nil, err
	}
	return l.Pages(ctx, files), nil
}
