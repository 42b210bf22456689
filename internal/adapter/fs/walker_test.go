package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
}

func relPaths(t *testing.T, w *Walker, root string) []string {
	t.Helper()
	files, err := w.Walk(root)
	require.NoError(t, err)
	out := make([]string, len(files))
	for i, f := range files {
		assert.True(t, filepath.IsAbs(f.Path))
		out[i] = f.RelPath
	}
	return out
}

func TestWalker_DefaultsToPDFs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "resume.pdf")
	touch(t, root, "notes.txt")
	touch(t, root, "reports/2024/q1.pdf")

	got := relPaths(t, NewWalker(nil, nil), root)
	assert.Equal(t, []string{"reports/2024/q1.pdf", "resume.pdf"}, got)
}

func TestWalker_Excludes(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.pdf")
	touch(t, root, ".cache/b.pdf")
	touch(t, root, "drafts/c.pdf")

	w := NewWalker([]string{"**/*.pdf"}, []string{"**/.*/**", "drafts/**"})
	assert.Equal(t, []string{"a.pdf"}, relPaths(t, w, root))
}

func TestWalker_SortedOutput(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.pdf", "a.pdf", "b.pdf"} {
		touch(t, root, name)
	}

	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, relPaths(t, NewWalker(nil, nil), root))
}

func TestWalker_MissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
