package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
	xlogger "RWAPrice/pkg/logger"
)

// Pricer is the top-level pricing orchestrator: aggregate, synthesize,
// audit. It either returns a PriceSignal or a generation_unavailable error,
// never an unhandled failure.
type Pricer struct {
	agg       *Aggregator
	syn       *Synthesizer
	knowledge drepo.KnowledgeStore
	audit     drepo.AuditSink
	publisher drepo.SignalPublisher
	metrics   drepo.Metrics
	logger    *xlogger.Logger
}

func NewPricer(
	agg *Aggregator,
	syn *Synthesizer,
	knowledge drepo.KnowledgeStore,
	audit drepo.AuditSink,
	publisher drepo.SignalPublisher,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
) *Pricer {
	return &Pricer{
		agg:       agg,
		syn:       syn,
		knowledge: knowledge,
		audit:     audit,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Price produces a price signal for the asset.
func (p *Pricer) Price(ctx context.Context, asset models.AssetContext) (*models.PriceSignal, error) {
	start := time.Now()

	agg := p.agg.Collect(ctx, asset)

	res, err := p.syn.Synthesize(ctx, asset, agg)
	if err != nil {
		p.metrics.RecordRequest("generation_unavailable")
		return nil, err
	}

	outcome := "ok"
	if res.Fallback {
		outcome = "fallback"
	}
	p.metrics.RecordRequest(outcome)
	p.metrics.RecordLastPrice(asset.AssetID, res.Signal.Price)
	p.metrics.RecordLatency("price", time.Since(start).Seconds())

	p.recordDecision(asset.AssetID, res)

	return &res.Signal, nil
}

// recordDecision writes the audit trail and publishes the signal. Both are
// best-effort: neither may affect the returned value or fail the call.
func (p *Pricer) recordDecision(assetID string, res SynthesisResult) {
	p.logger.Info("price signal",
		xlogger.String("asset", assetID),
		xlogger.Any("signal", res.Signal),
		xlogger.Bool("fallback", res.Fallback))

	entry := &models.AuditEntry{
		AssetID:    assetID,
		Price:      res.Signal.Price,
		Confidence: res.Signal.ConfidenceScore,
		Factors:    res.Signal.Factors,
		Payload:    res.Raw,
		Fallback:   res.Fallback,
		Timestamp:  res.Signal.Timestamp,
	}
	signal := res.Signal

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if p.audit != nil {
			if err := p.audit.Record(ctx, entry); err != nil {
				p.logger.Warn("audit write failed", xlogger.String("asset", assetID), xlogger.Error(err))
			}
		}
		if p.publisher != nil {
			if err := p.publisher.Publish(ctx, &signal); err != nil {
				p.logger.Warn("signal publish failed", xlogger.String("asset", assetID), xlogger.Error(err))
			}
		}
	}()
}

// IngestObservation formats an out-of-band observation and appends it to the
// knowledge base. Returns embedding_failed or persist_failed as-is.
func (p *Pricer) IngestObservation(ctx context.Context, source string, data interface{}, ts time.Time) error {
	if source == "" || data == nil {
		p.metrics.RecordIngest("invalid")
		return fmt.Errorf("invalid data source update")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		p.metrics.RecordIngest("invalid")
		return fmt.Errorf("marshal observation: %w", err)
	}

	text := fmt.Sprintf("Source: %s\nTimestamp: %s\nData: %s", source, ts.UTC().Format(time.RFC3339), raw)

	if err := p.knowledge.Ingest(ctx, text, source, ts); err != nil {
		p.metrics.RecordIngest("error")
		return err
	}
	p.metrics.RecordIngest("ok")
	p.logger.Info("knowledge base updated", xlogger.String("source", source), xlogger.Int("documents", p.knowledge.Len()))
	return nil
}

// SearchKnowledge exposes nearest-neighbor retrieval over the ingested
// observations.
func (p *Pricer) SearchKnowledge(ctx context.Context, query string, k int) ([]models.KnowledgeHit, error) {
	return p.knowledge.Search(ctx, query, k)
}

// KnowledgeSize returns the current number of ingested documents.
func (p *Pricer) KnowledgeSize() int { return p.knowledge.Len() }
