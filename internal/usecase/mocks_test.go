package usecase

import (
	"context"
	"sync"
	"time"

	"RWAPrice/internal/domain/models"
	xlogger "RWAPrice/pkg/logger"
)

func testLogger() *xlogger.Logger {
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

// recordingMetrics counts calls so tests can assert on observability side effects.
type recordingMetrics struct {
	mu             sync.Mutex
	requests       map[string]int
	sourceFailures map[string]int
	fallbacks      int
	ingests        map[string]int
	latencies      map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		requests:       make(map[string]int),
		sourceFailures: make(map[string]int),
		ingests:        make(map[string]int),
		latencies:      make(map[string]int),
	}
}

func (m *recordingMetrics) RecordRequest(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[outcome]++
}

func (m *recordingMetrics) RecordSourceFailure(source, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceFailures[source+"/"+kind]++
}

func (m *recordingMetrics) RecordFallback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *recordingMetrics) RecordIngest(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingests[status]++
}

func (m *recordingMetrics) RecordLastPrice(string, float64) {}

func (m *recordingMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[op]++
}

// stubSource settles with fixed data or a fixed error, optionally after a delay.
type stubSource struct {
	kind  models.SourceKind
	data  map[string]interface{}
	err   error
	delay time.Duration
}

func (s stubSource) Kind() models.SourceKind { return s.kind }

func (s stubSource) Fetch(ctx context.Context, _ models.AssetContext) (map[string]interface{}, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

// stubGen returns a canned generation output or error.
type stubGen struct {
	out string
	err error
}

func (g stubGen) Generate(context.Context, string) (string, error) { return g.out, g.err }

// memKnowledge is an in-memory knowledge store for orchestration tests.
type memKnowledge struct {
	mu   sync.Mutex
	docs []models.KnowledgeDocument
	err  error
}

func (m *memKnowledge) Ingest(_ context.Context, text, source string, ts time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, models.KnowledgeDocument{Text: text, Source: source, Timestamp: ts})
	return nil
}

func (m *memKnowledge) Search(context.Context, string, int) ([]models.KnowledgeHit, error) {
	return nil, nil
}

func (m *memKnowledge) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *memKnowledge) Close() error { return nil }

// recordingAudit captures audit entries; errs makes every write fail.
type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
	err     error
	done    chan struct{}
}

func (a *recordingAudit) Record(_ context.Context, e *models.AuditEntry) error {
	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
	if a.done != nil {
		a.done <- struct{}{}
	}
	return a.err
}

func (a *recordingAudit) Close() error { return nil }
