package models

import (
	"errors"
	"fmt"
)

// SourceErrorKind classifies a signal source failure.
type SourceErrorKind string

const (
	ErrKindTimeout   SourceErrorKind = "timeout"
	ErrKindUnavail   SourceErrorKind = "unavailable"
	ErrKindMalformed SourceErrorKind = "malformed_response"
)

// SourceError is the typed failure variant of a SignalRecord.
type SourceError struct {
	Source  SourceKind      `json:"source"`
	Kind    SourceErrorKind `json:"kind"`
	Message string          `json:"message"`
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %s", e.Source, e.Kind, e.Message)
}

// NewSourceError builds a typed source failure.
func NewSourceError(source SourceKind, kind SourceErrorKind, format string, a ...interface{}) *SourceError {
	return &SourceError{Source: source, Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Pipeline-level sentinel errors. The recovery policy (degrade vs. fail) is
// decided where these are observed, not where they are raised.
var (
	ErrGenerationUnavailable = errors.New("generation_unavailable")
	ErrEmbeddingFailed       = errors.New("embedding_failed")
	ErrPersistFailed         = errors.New("persist_failed")
	ErrAssetNotFound         = errors.New("asset not found")
	ErrDimensionMismatch     = errors.New("embedding dimension mismatch")
)
