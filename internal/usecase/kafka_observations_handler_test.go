package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObservationsHandlerTopic(t *testing.T) {
	h := NewKafkaObservationsHandler("rwa.observations", nil, newRecordingMetrics())
	require.Equal(t, "rwa.observations", h.Topic())
}

func TestObservationsHandlerIngests(t *testing.T) {
	m := newRecordingMetrics()
	knowledge := &memKnowledge{}
	p := newTestPricer(stubGen{}, knowledge, &recordingAudit{}, m)
	h := NewKafkaObservationsHandler("rwa.observations", p, m)

	msg := []byte(`{"source_name": "market_feed", "data": {"avg": 99.5}, "timestamp": "2025-06-01T12:00:00Z"}`)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Equal(t, 1, knowledge.Len())
	require.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Unix(), knowledge.docs[0].Timestamp.Unix())
	// op labels carry no unit, matching the rest of the pipeline
	require.Equal(t, 1, m.latencies["observe_e2e"])
	require.Equal(t, 1, m.latencies["knowledge_ingest"])
}

func TestObservationsHandlerRejectsBadJSON(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestPricer(stubGen{}, &memKnowledge{}, &recordingAudit{}, m)
	h := NewKafkaObservationsHandler("rwa.observations", p, m)

	require.Error(t, h.Handle(context.Background(), []byte("not json")))
	require.Equal(t, 1, m.ingests["invalid"])
}

func TestObservationsHandlerDefaultsTimestamp(t *testing.T) {
	knowledge := &memKnowledge{}
	m := newRecordingMetrics()
	p := newTestPricer(stubGen{}, knowledge, &recordingAudit{}, m)
	h := NewKafkaObservationsHandler("rwa.observations", p, m)

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, h.Handle(context.Background(), []byte(`{"source_name": "feed", "data": {"x": 1}}`)))
	require.True(t, knowledge.docs[0].Timestamp.After(before))
}
