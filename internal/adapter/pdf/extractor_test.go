package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.args = args
	return m.output, m.err
}

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, splitPages("one\ftwo\f"))
	assert.Equal(t, []string{"one", "", "three"}, splitPages("one\f\fthree\f"))
	assert.Empty(t, splitPages(""))
	assert.Equal(t, []string{"no form feed"}, splitPages("no form feed"))
}

func TestPdftotextExtractor(t *testing.T) {
	runner := &mockRunner{output: []byte("Jane Doe\nEmail: jane@example.com\fExperience\f")}
	ext := NewPdftotextExtractorWithRunner(runner)

	pages, err := ext.Extract(context.Background(), "/data/resume.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "jane@example.com")
	assert.Equal(t, "Experience", pages[1])
	assert.Contains(t, runner.args, "/data/resume.pdf")
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
}

func TestPdftotextExtractor_RunnerError(t *testing.T) {
	ext := NewPdftotextExtractorWithRunner(&mockRunner{err: errors.New("pdftotext crashed")})

	_, err := ext.Extract(context.Background(), "/data/resume.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestNativeExtractor_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is plain text, not a pdf"), 0644))

	_, err := NewNativeExtractor().Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestNativeExtractor_MissingFile(t *testing.T) {
	_, err := NewNativeExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
