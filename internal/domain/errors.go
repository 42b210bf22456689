package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIngestion         = errors.New("ingestion failed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrGeneration        = errors.New("generation failed")
	ErrStore             = errors.New("vector store failure")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrModelUnavailable  = errors.New("model service unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)

// IngestionError reports a source that could not be read.
type IngestionError struct {
	Path string
	Err  error
}

func NewIngestionError(path string, err error) *IngestionError {
	return &IngestionError{Path: path, Err: err}
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIngestion, e.Path, e.Err)
}

func (e *IngestionError) Unwrap() []error {
	return []error{ErrIngestion, e.Err}
}
