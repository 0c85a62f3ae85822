package models

import "time"

// KnowledgeDocument is the persisted metadata of one ingested observation.
// Position i in the document list always corresponds to vector i in the index.
type KnowledgeDocument struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// KnowledgeHit is one nearest-neighbor search result.
type KnowledgeHit struct {
	Document KnowledgeDocument `json:"document"`
	Score    float64           `json:"score"`
}

// AuditEntry records one pricing decision for later inspection.
type AuditEntry struct {
	AssetID    string
	Price      float64
	Confidence float64
	Factors    map[string]float64
	Payload    string // raw generation output or fallback marker
	Fallback   bool
	Timestamp  time.Time
}
