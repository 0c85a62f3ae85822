package models

// Requests for the pricing HTTP endpoints. Defined in domain for consistency and reuse.

type PriceRequest struct {
	AssetID      string   `json:"asset_id" validate:"required"`
	CurrentPrice *float64 `json:"current_price" validate:"omitempty,gt=0"`
}

type ObservationRequest struct {
	SourceName string      `json:"source_name" validate:"required"`
	Data       interface{} `json:"data" validate:"required"`
	Timestamp  string      `json:"timestamp"`
}

type KnowledgeSearchRequest struct {
	Query string `query:"q" json:"q" validate:"required"`
	K     int    `query:"k" json:"k" default:"5" validate:"gte=1,lte=50"`
}

// ObservationResponse reports the outcome of a knowledge base update.
type ObservationResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Documents int    `json:"documents"`
}
