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

func fullContext() models.AggregatedContext {
	out := models.AggregatedContext{Records: make(map[models.SourceKind]models.SignalRecord)}
	for _, kind := range models.SourceKinds() {
		out.Records[kind] = models.SignalRecord{Kind: kind, Data: map[string]interface{}{"kind": string(kind)}}
	}
	return out
}

func TestSynthesizeFencedJSON(t *testing.T) {
	out := "Here is my analysis:\n```json\n{\"price\": 120.5, \"confidence_score\": 0.9, \"factors\": {\"market\": 0.6, \"sentiment\": 0.4}, \"explanation\": \"strong comps\", \"trend\": \"up\"}\n```\nLet me know if you need more."
	m := newRecordingMetrics()
	syn := NewSynthesizer(stubGen{out: out}, m, testLogger())

	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, fullContext())
	require.NoError(t, err)
	require.False(t, res.Fallback)
	require.Equal(t, 120.5, res.Signal.Price)
	require.Equal(t, 0.9, res.Signal.ConfidenceScore)
	require.Equal(t, "up", res.Signal.Trend)
	require.Equal(t, "strong comps", res.Signal.Explanation)
	require.Equal(t, out, res.Raw)
	require.Zero(t, m.fallbacks)
}

func TestSynthesizeBareJSON(t *testing.T) {
	out := `{"price": 42, "confidence_score": 0.7, "factors": {"macro": 1.0}}`
	syn := NewSynthesizer(stubGen{out: out}, newRecordingMetrics(), testLogger())

	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, fullContext())
	require.NoError(t, err)
	require.False(t, res.Fallback)
	require.Equal(t, 42.0, res.Signal.Price)
}

func TestSynthesizeFallbackOnGarbage(t *testing.T) {
	cur := 500.0
	m := newRecordingMetrics()
	syn := NewSynthesizer(stubGen{out: "not json at all"}, m, testLogger())

	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1", CurrentPrice: &cur}, fullContext())
	require.NoError(t, err)
	require.True(t, res.Fallback)
	require.Equal(t, 500.0, res.Signal.Price)
	require.Equal(t, 0.5, res.Signal.ConfidenceScore)
	require.Equal(t, map[string]float64{"fallback": 1.0}, res.Signal.Factors)
	require.Empty(t, res.Signal.Trend)
	require.Equal(t, 1, m.fallbacks)
}

func TestSynthesizeFallbackPriceLadder(t *testing.T) {
	syn := NewSynthesizer(stubGen{out: "{}"}, newRecordingMetrics(), testLogger())

	// no current price, catalog carries initial_price
	asset := models.AssetContext{
		AssetID:  "rwa-1",
		Metadata: map[string]interface{}{"initial_price": 2500.0},
	}
	res, err := syn.Synthesize(context.Background(), asset, fullContext())
	require.NoError(t, err)
	require.True(t, res.Fallback)
	require.Equal(t, 2500.0, res.Signal.Price)

	// nothing at all: fixed default
	res, err = syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-2"}, fullContext())
	require.NoError(t, err)
	require.Equal(t, float64(DefaultFallbackPrice), res.Signal.Price)
}

func TestSynthesizeMissingRequiredFieldFallsBack(t *testing.T) {
	// confidence present but price missing
	out := `{"confidence_score": 0.8, "factors": {"x": 1.0}}`
	syn := NewSynthesizer(stubGen{out: out}, newRecordingMetrics(), testLogger())

	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, fullContext())
	require.NoError(t, err)
	require.True(t, res.Fallback)
}

func TestSynthesizeClampsOutOfRange(t *testing.T) {
	out := `{"price": -5, "confidence_score": 3.2, "factors": {"a": -0.4, "b": 1.9}, "trend": "SIDEWAYS"}`
	syn := NewSynthesizer(stubGen{out: out}, newRecordingMetrics(), testLogger())

	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, fullContext())
	require.NoError(t, err)
	require.False(t, res.Fallback)
	require.Equal(t, 0.0, res.Signal.Price)
	require.Equal(t, 1.0, res.Signal.ConfidenceScore)
	require.Equal(t, 0.0, res.Signal.Factors["a"])
	require.Equal(t, 1.0, res.Signal.Factors["b"])
	require.Empty(t, res.Signal.Trend)
}

func TestSynthesizeGenerationUnavailable(t *testing.T) {
	m := newRecordingMetrics()
	syn := NewSynthesizer(stubGen{err: errors.New("quota exhausted")}, m, testLogger())

	_, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, fullContext())
	require.Error(t, err)
	require.ErrorIs(t, err, models.ErrGenerationUnavailable)
	require.Zero(t, m.fallbacks)
}

func TestSynthesizeAllSourcesFailedStillPrompts(t *testing.T) {
	agg := models.AggregatedContext{Records: make(map[models.SourceKind]models.SignalRecord)}
	for _, kind := range models.SourceKinds() {
		agg.Records[kind] = models.SignalRecord{
			Kind: kind,
			Err:  models.NewSourceError(kind, models.ErrKindUnavail, "connection refused"),
		}
	}
	out := "```json\n{\"price\": 9000, \"confidence_score\": 0.2, \"factors\": {\"prior\": 1.0}}\n```"
	syn := NewSynthesizer(stubGen{out: out}, newRecordingMetrics(), testLogger())

	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, agg)
	require.NoError(t, err)
	require.False(t, res.Fallback)
	require.Equal(t, 9000.0, res.Signal.Price)
}

func TestBuildPromptRendersAllSections(t *testing.T) {
	syn := NewSynthesizer(stubGen{}, newRecordingMetrics(), testLogger())
	cur := 123456.78
	asset := models.AssetContext{AssetID: "rwa-1", CurrentPrice: &cur, Metadata: map[string]interface{}{"name": "Tower A"}}

	agg := fullContext()
	agg.Records[models.SourceMacro] = models.SignalRecord{
		Kind: models.SourceMacro,
		Err:  models.NewSourceError(models.SourceMacro, models.ErrKindTimeout, "fetch exceeded 1s"),
	}

	prompt := syn.buildPrompt(asset, agg)
	require.Contains(t, prompt, "Tower A")
	require.Contains(t, prompt, "123456.78")
	require.Contains(t, prompt, "unavailable: fetch exceeded 1s (timeout)")
	require.Contains(t, prompt, "JSON RESPONSE:")
	for _, section := range []string{"ASSET:", "MARKET:", "SENTIMENT:", "MACRO:", "CHAIN:"} {
		require.Contains(t, prompt, section)
	}
	// the caller's context stays untouched
	_, mutated := asset.Metadata["current_price"]
	require.False(t, mutated)
}

func TestExtractFenced(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"prefix\n```json\n{\"a\":1}\n``` suffix", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		// unterminated fence still yields the content after the first delimiter
		{"```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tc := range cases {
		require.Equal(t, tc.out, extractFenced(tc.in), "input %q", tc.in)
	}
}

func TestSignalTimestampIsUTC(t *testing.T) {
	out := `{"price": 1, "confidence_score": 0.5, "factors": {}}`
	syn := NewSynthesizer(stubGen{out: out}, newRecordingMetrics(), testLogger())

	before := time.Now().UTC()
	res, err := syn.Synthesize(context.Background(), models.AssetContext{AssetID: "rwa-1"}, fullContext())
	require.NoError(t, err)
	require.False(t, res.Signal.Timestamp.Before(before.Truncate(time.Second)))
	require.Equal(t, "UTC", res.Signal.Timestamp.Location().String())
}

func TestTruncateLongRaw(t *testing.T) {
	long := strings.Repeat("x", 1000)
	require.Len(t, truncate(long, 512), 515)
	require.Equal(t, "abc", truncate("abc", 512))
}
