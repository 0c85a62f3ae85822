package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"RWAPrice/internal/domain/models"
	drepo "RWAPrice/internal/domain/repository"
	xlogger "RWAPrice/pkg/logger"
)

// DefaultFallbackPrice is used when neither the request nor the catalog
// carries a price to fall back to.
const DefaultFallbackPrice = 10000

const promptTemplate = `You are an AI pricing specialist for tokenized real-world assets (RWAs).

ASSET:
%s

MARKET:
%s

SENTIMENT:
%s

MACRO:
%s

CHAIN:
%s

Based on all the information above, determine a fair market price for this asset.
Consider trends, comparable assets, sentiment, and economic conditions.
Sections marked unavailable carry no data for this request; price with what remains.

Provide your response as a JSON object with the following fields:
- price: The recommended price in USD (numeric value only)
- confidence_score: Your confidence in this price (0.0-1.0)
- factors: A dictionary of factors and their influence weights (sum to 1.0)
- explanation: Brief explanation of your pricing rationale
- trend: Expected short-term price direction ("up", "down", or "stable")

JSON RESPONSE:`

// Synthesizer builds one prompt from the aggregated context, invokes the
// generation capability once, and extracts a structured pricing result.
// Everything except a generation outage degrades to the deterministic
// fallback rather than failing the request.
type Synthesizer struct {
	gen     drepo.Generator
	metrics drepo.Metrics
	logger  *xlogger.Logger
}

// SynthesisResult carries the signal plus what the audit trail needs.
type SynthesisResult struct {
	Signal   models.PriceSignal
	Raw      string // full generation output (or fallback marker)
	Fallback bool
}

func NewSynthesizer(gen drepo.Generator, metrics drepo.Metrics, logger *xlogger.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, metrics: metrics, logger: logger}
}

// Synthesize produces a PriceSignal for the asset. The only error it can
// return is generation_unavailable: with no candidate answer there is
// nothing to fall back to.
func (s *Synthesizer) Synthesize(ctx context.Context, asset models.AssetContext, agg models.AggregatedContext) (SynthesisResult, error) {
	prompt := s.buildPrompt(asset, agg)

	start := time.Now()
	raw, err := s.gen.Generate(ctx, prompt)
	s.metrics.RecordLatency("generate", time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("generation call failed", xlogger.String("asset", asset.AssetID), xlogger.Error(err))
		return SynthesisResult{}, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}

	parsed, ok := parseGeneration(raw)
	if !ok {
		s.metrics.RecordFallback()
		s.logger.Warn("unparseable generation output, using fallback",
			xlogger.String("asset", asset.AssetID),
			xlogger.String("raw", truncate(raw, 512)))
		return SynthesisResult{
			Signal:   fallbackSignal(asset),
			Raw:      raw,
			Fallback: true,
		}, nil
	}

	return SynthesisResult{
		Signal: models.PriceSignal{
			AssetID:         asset.AssetID,
			Price:           clampPrice(*parsed.Price),
			ConfidenceScore: clamp01(*parsed.ConfidenceScore),
			Timestamp:       time.Now().UTC(),
			Factors:         clampFactors(parsed.Factors),
			Explanation:     parsed.Explanation,
			Trend:           normalizeTrend(parsed.Trend),
		},
		Raw: raw,
	}, nil
}

// buildPrompt renders the fixed section templates. Failed sources are
// rendered with an explicit unavailable marker rather than omitted, so the
// generator is never silently missing context.
func (s *Synthesizer) buildPrompt(asset models.AssetContext, agg models.AggregatedContext) string {
	meta := asset.Metadata
	if asset.CurrentPrice != nil {
		meta = make(map[string]interface{}, len(asset.Metadata)+1)
		for k, v := range asset.Metadata {
			meta[k] = v
		}
		meta["current_price"] = *asset.CurrentPrice
	}

	sections := make([]string, 0, 5)
	sections = append(sections, renderJSON(meta))
	for _, kind := range models.SourceKinds() {
		r := agg.Record(kind)
		if r.Failed() {
			sections = append(sections, fmt.Sprintf("unavailable: %s (%s)", r.Err.Message, r.Err.Kind))
			continue
		}
		sections = append(sections, renderJSON(r.Data))
	}
	return fmt.Sprintf(promptTemplate,
		sections[0], sections[1], sections[2], sections[3], sections[4])
}

// generatedResult is the structured object expected inside the model output.
// Pointer fields distinguish missing from zero.
type generatedResult struct {
	Price           *float64           `json:"price"`
	ConfidenceScore *float64           `json:"confidence_score"`
	Factors         map[string]float64 `json:"factors"`
	Explanation     string             `json:"explanation"`
	Trend           string             `json:"trend"`
}

// parseGeneration extracts the structured result out of free-form model
// output. Returns ok=false for any shape problem.
func parseGeneration(raw string) (generatedResult, bool) {
	text := extractFenced(raw)

	var res generatedResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return generatedResult{}, false
	}
	if res.Price == nil || res.ConfidenceScore == nil || res.Factors == nil {
		return generatedResult{}, false
	}
	return res, true
}

// extractFenced returns the content of the first fenced code block, with a
// leading json tag stripped; if no fence is present, the whole trimmed text.
func extractFenced(raw string) string {
	parts := strings.Split(raw, "```")
	if len(parts) < 2 {
		return strings.TrimSpace(raw)
	}
	block := strings.TrimSpace(parts[1])
	if rest, ok := strings.CutPrefix(block, "json"); ok {
		block = rest
	}
	return strings.TrimSpace(block)
}

// fallbackSignal is the deterministic default pricing output. Must never fail.
func fallbackSignal(asset models.AssetContext) models.PriceSignal {
	price := float64(DefaultFallbackPrice)
	if asset.CurrentPrice != nil {
		price = *asset.CurrentPrice
	} else if p, ok := asset.InitialPrice(); ok {
		price = p
	}
	return models.PriceSignal{
		AssetID:         asset.AssetID,
		Price:           clampPrice(price),
		ConfidenceScore: 0.5,
		Timestamp:       time.Now().UTC(),
		Factors:         map[string]float64{"fallback": 1.0},
		Explanation:     "parse failure",
	}
}

func renderJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func clampPrice(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func clampFactors(fs map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(fs))
	for k, v := range fs {
		out[k] = clamp01(v)
	}
	return out
}

func normalizeTrend(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if models.ValidTrend(s) {
		return s
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
