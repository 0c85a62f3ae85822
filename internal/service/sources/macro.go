package sources

import (
	"context"
	"time"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/ratelimit"
	xcache "RWAPrice/pkg/cache"
	xlogger "RWAPrice/pkg/logger"
)

// MacroClient fetches the economic indicator snapshot. Indicators change
// slowly, so responses are cached aggressively.
type MacroClient struct {
	base
	url    string
	apiKey string
}

func NewMacroClient(url, apiKey string, timeout, cacheTTL time.Duration, limiter *ratelimit.Limiter, cache xcache.Service, logger *xlogger.Logger) *MacroClient {
	return &MacroClient{
		base:   newBase(models.SourceMacro, timeout, limiter, cache, cacheTTL, logger),
		url:    url,
		apiKey: apiKey,
	}
}

func (c *MacroClient) Kind() models.SourceKind { return models.SourceMacro }

// macroResponse is the expected wire shape of the indicators API. All four
// indicators are required; a partial snapshot is malformed.
type macroResponse struct {
	InflationRate      *float64 `json:"inflation_rate"`
	InterestRate       *float64 `json:"interest_rate"`
	ConsumerConfidence *float64 `json:"consumer_confidence"`
	GDPGrowth          *float64 `json:"gdp_growth"`
}

func (c *MacroClient) Fetch(ctx context.Context, _ models.AssetContext) (map[string]interface{}, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}

	return c.cached(ctx, xcache.GenerateKey("src:macro", "latest"), func() (map[string]interface{}, error) {
		var resp macroResponse
		err := c.getJSON(ctx, c.url, map[string][]string{
			"apikey": {c.apiKey},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.InflationRate == nil || resp.InterestRate == nil ||
			resp.ConsumerConfidence == nil || resp.GDPGrowth == nil {
			return nil, models.NewSourceError(c.kind, models.ErrKindMalformed, "incomplete indicator snapshot")
		}
		return map[string]interface{}{
			"inflation_rate":      *resp.InflationRate,
			"interest_rate":       *resp.InterestRate,
			"consumer_confidence": *resp.ConsumerConfidence,
			"gdp_growth":          *resp.GDPGrowth,
		}, nil
	})
}
