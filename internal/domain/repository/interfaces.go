package repository

import (
	"context"
	"time"

	"RWAPrice/internal/domain/models"
)

// SignalSource is one independently callable external data capability.
// Implementations must be safe for concurrent Fetch calls and must not
// share mutable state across calls.
type SignalSource interface {
	Kind() models.SourceKind
	Fetch(ctx context.Context, asset models.AssetContext) (map[string]interface{}, error)
}

// Generator is the black-box text-generation capability: prompt in,
// free-form text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder maps text to a fixed-length vector. Deterministic for a given
// text and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}

// KnowledgeStore is the durable, embedding-indexed log of observations.
type KnowledgeStore interface {
	Ingest(ctx context.Context, text, source string, ts time.Time) error
	Search(ctx context.Context, query string, k int) ([]models.KnowledgeHit, error)
	Len() int
	Close() error
}

// AssetCatalog is the read-only store of asset metadata.
type AssetCatalog interface {
	Get(id string) (models.AssetMetadata, error)
	All() []models.AssetMetadata
}

// AuditSink records pricing decisions. Failures must never propagate into
// the pricing result.
type AuditSink interface {
	Record(ctx context.Context, e *models.AuditEntry) error
	Close() error
}

// SignalPublisher pushes finished price signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.PriceSignal) error
	Close() error
}

// Metrics abstracts the metrics recorder used across the pipeline.
type Metrics interface {
	RecordRequest(outcome string)
	RecordSourceFailure(source, kind string)
	RecordFallback()
	RecordIngest(status string)
	RecordLastPrice(assetID string, price float64)
	RecordLatency(op string, seconds float64)
}
