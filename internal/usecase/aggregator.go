package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
	xlogger "RWAPrice/pkg/logger"
)

// Aggregator fans out to all signal sources concurrently and joins their
// settled results. One source failing, timing out, or returning garbage never
// aborts collection of the others, and there is no short-circuit: every
// source's status is meaningful context for synthesis.
type Aggregator struct {
	sources []drepo.SignalSource
	timeout time.Duration
	metrics drepo.Metrics
	logger  *xlogger.Logger
}

// NewAggregator creates an Aggregator with a per-source timeout.
func NewAggregator(sources []drepo.SignalSource, timeout time.Duration, metrics drepo.Metrics, logger *xlogger.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{sources: sources, timeout: timeout, metrics: metrics, logger: logger}
}

// Collect invokes every source concurrently and blocks until all have
// settled. The result has exactly one record per source, success or typed
// failure, never absent. No retries here: retry policy lives inside each
// source's own capability boundary.
func (a *Aggregator) Collect(ctx context.Context, asset models.AssetContext) models.AggregatedContext {
	start := time.Now()

	records := make([]models.SignalRecord, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src drepo.SignalSource) {
			defer wg.Done()
			records[i] = a.fetchOne(ctx, src, asset)
		}(i, src)
	}
	wg.Wait()

	out := models.AggregatedContext{Records: make(map[models.SourceKind]models.SignalRecord, len(records))}
	for _, r := range records {
		out.Records[r.Kind] = r
		if r.Failed() {
			a.metrics.RecordSourceFailure(string(r.Kind), string(r.Err.Kind))
			a.logger.Warn("signal source degraded",
				xlogger.String("asset", asset.AssetID),
				xlogger.String("source", string(r.Kind)),
				xlogger.String("kind", string(r.Err.Kind)),
				xlogger.String("message", r.Err.Message))
		}
	}

	a.metrics.RecordLatency("aggregate", time.Since(start).Seconds())
	return out
}

// fetchOne time-boxes a single source call and folds its outcome into a
// settled SignalRecord.
func (a *Aggregator) fetchOne(ctx context.Context, src drepo.SignalSource, asset models.AssetContext) models.SignalRecord {
	kind := src.Kind()

	fctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	data, err := src.Fetch(fctx, asset)
	if err == nil {
		return models.SignalRecord{Kind: kind, Data: data}
	}

	var srcErr *models.SourceError
	switch {
	case errors.As(err, &srcErr):
		return models.SignalRecord{Kind: kind, Err: srcErr}
	case errors.Is(err, context.DeadlineExceeded):
		return models.SignalRecord{Kind: kind, Err: models.NewSourceError(kind, models.ErrKindTimeout, "fetch exceeded %s", a.timeout)}
	default:
		return models.SignalRecord{Kind: kind, Err: models.NewSourceError(kind, models.ErrKindUnavail, "%v", err)}
	}
}
