package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
)

func allStubSources(fail map[models.SourceKind]error) []stubSource {
	out := make([]stubSource, 0, 4)
	for _, kind := range models.SourceKinds() {
		s := stubSource{kind: kind, data: map[string]interface{}{"ok": true}}
		if err, bad := fail[kind]; bad {
			s.err = err
			s.data = nil
		}
		out = append(out, s)
	}
	return out
}

func buildAggregator(srcs []stubSource, timeout time.Duration, m *recordingMetrics) *Aggregator {
	conv := make([]drepo.SignalSource, len(srcs))
	for i := range srcs {
		conv[i] = srcs[i]
	}
	return NewAggregator(conv, timeout, m, testLogger())
}

func TestCollectAllSucceed(t *testing.T) {
	m := newRecordingMetrics()
	agg := buildAggregator(allStubSources(nil), time.Second, m)

	out := agg.Collect(context.Background(), models.AssetContext{AssetID: "rwa-1"})

	require.Len(t, out.Records, 4)
	require.Zero(t, out.FailureCount())
	for _, kind := range models.SourceKinds() {
		r := out.Record(kind)
		require.False(t, r.Failed())
		require.Equal(t, true, r.Data["ok"])
	}
}

func TestCollectPartialFailure(t *testing.T) {
	m := newRecordingMetrics()
	fail := map[models.SourceKind]error{
		models.SourceMacro: models.NewSourceError(models.SourceMacro, models.ErrKindMalformed, "bad body"),
	}
	agg := buildAggregator(allStubSources(fail), time.Second, m)

	out := agg.Collect(context.Background(), models.AssetContext{AssetID: "rwa-1"})

	require.Len(t, out.Records, 4)
	require.Equal(t, 1, out.FailureCount())
	r := out.Record(models.SourceMacro)
	require.True(t, r.Failed())
	require.Equal(t, models.ErrKindMalformed, r.Err.Kind)
	require.Equal(t, 1, m.sourceFailures["macro/malformed_response"])
}

func TestCollectTimeoutClassified(t *testing.T) {
	m := newRecordingMetrics()
	srcs := allStubSources(nil)
	srcs[0].delay = 200 * time.Millisecond
	agg := buildAggregator(srcs, 20*time.Millisecond, m)

	out := agg.Collect(context.Background(), models.AssetContext{AssetID: "rwa-1"})

	r := out.Record(models.SourceMarket)
	require.True(t, r.Failed())
	require.Equal(t, models.ErrKindTimeout, r.Err.Kind)

	// the slow source never blocks the others
	require.False(t, out.Record(models.SourceSentiment).Failed())
	require.False(t, out.Record(models.SourceMacro).Failed())
	require.False(t, out.Record(models.SourceChainMeta).Failed())
}

func TestCollectAllFailStillFourRecords(t *testing.T) {
	m := newRecordingMetrics()
	fail := make(map[models.SourceKind]error, 4)
	for _, kind := range models.SourceKinds() {
		fail[kind] = errors.New("connection refused")
	}
	agg := buildAggregator(allStubSources(fail), time.Second, m)

	out := agg.Collect(context.Background(), models.AssetContext{AssetID: "rwa-1"})

	require.Len(t, out.Records, 4)
	require.Equal(t, 4, out.FailureCount())
	for _, kind := range models.SourceKinds() {
		require.Equal(t, models.ErrKindUnavail, out.Record(kind).Err.Kind)
	}
}

func TestRecordMissingKindIsUnavailable(t *testing.T) {
	out := models.AggregatedContext{Records: map[models.SourceKind]models.SignalRecord{}}
	r := out.Record(models.SourceMarket)
	require.True(t, r.Failed())
	require.Equal(t, models.ErrKindUnavail, r.Err.Kind)
}
