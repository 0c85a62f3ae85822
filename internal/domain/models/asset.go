package models

import "time"

// AssetContext is the immutable per-request input to the pricing pipeline.
// Supplied by the caller and never mutated by the core.
type AssetContext struct {
	AssetID      string
	Category     string
	CurrentPrice *float64
	Metadata     map[string]interface{}
}

// InitialPrice returns the catalog initial price from metadata, if present.
func (a AssetContext) InitialPrice() (float64, bool) {
	v, ok := a.Metadata["initial_price"]
	if !ok {
		return 0, false
	}
	switch p := v.(type) {
	case float64:
		return p, true
	case int:
		return float64(p), true
	case int64:
		return float64(p), true
	}
	return 0, false
}

// ContractAddress returns the bound NFT contract address, if any.
func (a AssetContext) ContractAddress() string {
	if v, ok := a.Metadata["contract_address"].(string); ok {
		return v
	}
	return ""
}

// AssetMetadata describes one tokenized asset in the static catalog.
type AssetMetadata struct {
	ID              string    `yaml:"id" json:"asset_id"`
	Name            string    `yaml:"name" json:"name"`
	Category        string    `yaml:"category" json:"category"`
	Description     string    `yaml:"description" json:"description"`
	InitialPrice    float64   `yaml:"initial_price" json:"initial_price"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at"`
	ContractAddress string    `yaml:"contract_address" json:"contract_address,omitempty"`
	TokenID         int64     `yaml:"token_id" json:"token_id,omitempty"`
}

// Context builds the pricing input for this asset, optionally overriding the
// current price from the request.
func (m AssetMetadata) Context(currentPrice *float64) AssetContext {
	meta := map[string]interface{}{
		"name":          m.Name,
		"category":      m.Category,
		"description":   m.Description,
		"initial_price": m.InitialPrice,
		"created_at":    m.CreatedAt.Format(time.RFC3339),
	}
	if m.ContractAddress != "" {
		meta["contract_address"] = m.ContractAddress
		meta["token_id"] = m.TokenID
	}
	return AssetContext{
		AssetID:      m.ID,
		Category:     m.Category,
		CurrentPrice: currentPrice,
		Metadata:     meta,
	}
}
