package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RWAPrice/internal/domain/models"
)

func newTestPricer(gen stubGen, knowledge *memKnowledge, audit *recordingAudit, m *recordingMetrics) *Pricer {
	agg := buildAggregator(allStubSources(nil), time.Second, m)
	syn := NewSynthesizer(gen, m, testLogger())
	return NewPricer(agg, syn, knowledge, audit, nil, m, testLogger())
}

func TestPriceHappyPath(t *testing.T) {
	m := newRecordingMetrics()
	audit := &recordingAudit{done: make(chan struct{}, 1)}
	gen := stubGen{out: `{"price": 875.25, "confidence_score": 0.85, "factors": {"market": 1.0}, "trend": "stable"}`}
	p := newTestPricer(gen, &memKnowledge{}, audit, m)

	signal, err := p.Price(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.NoError(t, err)
	require.Equal(t, "rwa-1", signal.AssetID)
	require.Equal(t, 875.25, signal.Price)
	require.Equal(t, 1, m.requests["ok"])

	select {
	case <-audit.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry never recorded")
	}
	audit.mu.Lock()
	defer audit.mu.Unlock()
	require.Len(t, audit.entries, 1)
	require.Equal(t, 875.25, audit.entries[0].Price)
	require.False(t, audit.entries[0].Fallback)
}

func TestPriceGenerationUnavailable(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestPricer(stubGen{err: errors.New("backend down")}, &memKnowledge{}, &recordingAudit{}, m)

	_, err := p.Price(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.ErrorIs(t, err, models.ErrGenerationUnavailable)
	require.Equal(t, 1, m.requests["generation_unavailable"])
}

func TestPriceSucceedsWhenAuditFails(t *testing.T) {
	m := newRecordingMetrics()
	audit := &recordingAudit{err: errors.New("clickhouse unreachable"), done: make(chan struct{}, 1)}
	gen := stubGen{out: `{"price": 10, "confidence_score": 0.5, "factors": {}}`}
	p := newTestPricer(gen, &memKnowledge{}, audit, m)

	signal, err := p.Price(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.NoError(t, err)
	require.Equal(t, 10.0, signal.Price)

	select {
	case <-audit.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit write never attempted")
	}
}

func TestPriceFallbackOutcomeCounted(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestPricer(stubGen{out: "garbage"}, &memKnowledge{}, &recordingAudit{}, m)

	_, err := p.Price(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.NoError(t, err)
	require.Equal(t, 1, m.requests["fallback"])
}

func TestIngestObservationFormat(t *testing.T) {
	m := newRecordingMetrics()
	knowledge := &memKnowledge{}
	p := newTestPricer(stubGen{}, knowledge, &recordingAudit{}, m)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := p.IngestObservation(context.Background(), "market_feed", map[string]interface{}{"avg": 120.5}, ts)
	require.NoError(t, err)
	require.Equal(t, 1, knowledge.Len())

	doc := knowledge.docs[0]
	require.Equal(t, "market_feed", doc.Source)
	require.True(t, strings.HasPrefix(doc.Text, "Source: market_feed\nTimestamp: 2025-06-01T12:00:00Z\nData: "))
	require.Contains(t, doc.Text, `"avg":120.5`)
	require.Equal(t, 1, m.ingests["ok"])
}

func TestIngestObservationRejectsInvalid(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestPricer(stubGen{}, &memKnowledge{}, &recordingAudit{}, m)

	require.Error(t, p.IngestObservation(context.Background(), "", map[string]interface{}{"x": 1}, time.Now()))
	require.Error(t, p.IngestObservation(context.Background(), "feed", nil, time.Now()))
	require.Equal(t, 2, m.ingests["invalid"])
}

func TestIngestObservationPropagatesStoreError(t *testing.T) {
	m := newRecordingMetrics()
	knowledge := &memKnowledge{err: models.ErrPersistFailed}
	p := newTestPricer(stubGen{}, knowledge, &recordingAudit{}, m)

	err := p.IngestObservation(context.Background(), "feed", map[string]interface{}{"x": 1}, time.Now())
	require.ErrorIs(t, err, models.ErrPersistFailed)
	require.Equal(t, 1, m.ingests["error"])
}
