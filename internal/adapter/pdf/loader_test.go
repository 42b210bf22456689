package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/domain"
)

// fakeExtractor serves page texts keyed by file base name.
type fakeExtractor struct {
	pages map[string][]string
	fail  map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]string, error) {
	name := filepath.Base(path)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	return f.pages[name], nil
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0644))
	}
	return dir
}

func collect(t *testing.T, l *Loader, dir string) ([]domain.Page, []error) {
	t.Helper()
	seq, err := l.Load(context.Background(), dir)
	require.NoError(t, err)

	var pages []domain.Page
	var errs []error
	for p, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pages = append(pages, p)
	}
	return pages, errs
}

func TestLoader_PagesInOrder(t *testing.T) {
	dir := writeFiles(t, "b.pdf", "a.pdf")
	ext := &fakeExtractor{pages: map[string][]string{
		"a.pdf": {"first page", "second page"},
		"b.pdf": {"only page"},
	}}

	pages, errs := collect(t, NewLoader(fs.NewWalker(nil, nil), ext, nil), dir)
	require.Empty(t, errs)
	require.Len(t, pages, 3)

	assert.Equal(t, domain.Page{Source: "a.pdf", Number: 1, Text: "first page"}, pages[0])
	assert.Equal(t, domain.Page{Source: "a.pdf", Number: 2, Text: "second page"}, pages[1])
	assert.Equal(t, domain.Page{Source: "b.pdf", Number: 1, Text: "only page"}, pages[2])
}

func TestLoader_BadFileIsSkipped(t *testing.T) {
	dir := writeFiles(t, "a.pdf", "broken.pdf", "c.pdf")
	ext := &fakeExtractor{
		pages: map[string][]string{"a.pdf": {"alpha"}, "c.pdf": {"gamma"}},
		fail:  map[string]error{"broken.pdf": errors.New("bad xref")},
	}

	pages, errs := collect(t, NewLoader(fs.NewWalker(nil, nil), ext, nil), dir)
	require.Len(t, pages, 2)
	require.Len(t, errs, 1)

	var ingErr *domain.IngestionError
	require.ErrorAs(t, errs[0], &ingErr)
	assert.Equal(t, "broken.pdf", ingErr.Path)
	assert.ErrorIs(t, errs[0], domain.ErrIngestion)
	assert.Equal(t, "gamma", pages[1].Text)
}

func TestLoader_MissingDirectory(t *testing.T) {
	l := NewLoader(fs.NewWalker(nil, nil), &fakeExtractor{}, nil)

	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestion)
}

func TestLoader_NotADirectory(t *testing.T) {
	dir := writeFiles(t, "a.pdf")
	l := NewLoader(fs.NewWalker(nil, nil), &fakeExtractor{}, nil)

	_, err := l.Discover(filepath.Join(dir, "a.pdf"))
	assert.ErrorIs(t, err, domain.ErrIngestion)
}

func TestLoader_StopsEarly(t *testing.T) {
	dir := writeFiles(t, "a.pdf")
	ext := &fakeExtractor{pages: map[string][]string{"a.pdf": {"1", "2", "3"}}}

	seq, err := NewLoader(fs.NewWalker(nil, nil), ext, nil).Load(context.Background(), dir)
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestLoader_CancelledContext(t *testing.T) {
	dir := writeFiles(t, "a.pdf")
	ext := &fakeExtractor{pages: map[string][]string{"a.pdf": {"1"}}}
	l := NewLoader(fs.NewWalker(nil, nil), ext, nil)

	files, err := l.Discover(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, err := range l.Pages(ctx, files) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
