package models

import "time"

// SourceKind identifies one of the four external signal sources.
type SourceKind string

const (
	SourceMarket    SourceKind = "market"
	SourceSentiment SourceKind = "sentiment"
	SourceMacro     SourceKind = "macro"
	SourceChainMeta SourceKind = "chain_meta"
)

// SourceKinds lists every source kind in render order.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceMarket, SourceSentiment, SourceMacro, SourceChainMeta}
}

// SignalRecord is the settled result of one signal source: either a payload
// or a typed failure, never both. Immutable once produced.
type SignalRecord struct {
	Kind SourceKind             `json:"kind"`
	Data map[string]interface{} `json:"data,omitempty"`
	Err  *SourceError           `json:"error,omitempty"`
}

// Failed reports whether this record carries the failure variant.
func (r SignalRecord) Failed() bool { return r.Err != nil }

// AggregatedContext holds exactly one settled record per source kind.
// Assembled once by the aggregator and passed by value from then on.
type AggregatedContext struct {
	Records map[SourceKind]SignalRecord
}

// Record returns the settled record for kind. A missing entry is reported as
// an unavailable failure so downstream rendering stays exhaustive.
func (c AggregatedContext) Record(kind SourceKind) SignalRecord {
	if r, ok := c.Records[kind]; ok {
		return r
	}
	return SignalRecord{Kind: kind, Err: NewSourceError(kind, ErrKindUnavail, "not collected")}
}

// FailureCount returns the number of failed sources.
func (c AggregatedContext) FailureCount() int {
	n := 0
	for _, r := range c.Records {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Trend tags for the expected short-term price direction.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// ValidTrend reports whether s is one of the accepted trend tags.
func ValidTrend(s string) bool {
	return s == TrendUp || s == TrendDown || s == TrendStable
}

// PriceSignal is the pipeline output. Constructed exactly once per request.
type PriceSignal struct {
	AssetID         string             `json:"asset_id"`
	Price           float64            `json:"price"`
	ConfidenceScore float64            `json:"confidence_score"`
	Timestamp       time.Time          `json:"timestamp"`
	Factors         map[string]float64 `json:"factors"`
	Explanation     string             `json:"explanation,omitempty"`
	Trend           string             `json:"trend,omitempty"`
}
