package sources

import (
	"context"
	"time"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/ratelimit"
	xcache "RWAPrice/pkg/cache"
	xlogger "RWAPrice/pkg/logger"
)

// MarketClient fetches comparable-sales data for an asset category.
type MarketClient struct {
	base
	url    string
	apiKey string
}

func NewMarketClient(url, apiKey string, timeout, cacheTTL time.Duration, limiter *ratelimit.Limiter, cache xcache.Service, logger *xlogger.Logger) *MarketClient {
	return &MarketClient{
		base:   newBase(models.SourceMarket, timeout, limiter, cache, cacheTTL, logger),
		url:    url,
		apiKey: apiKey,
	}
}

func (c *MarketClient) Kind() models.SourceKind { return models.SourceMarket }

// marketResponse is the expected wire shape of the comparables API.
type marketResponse struct {
	ComparableSales []struct {
		Item  string  `json:"item"`
		Price float64 `json:"price"`
		Date  string  `json:"date"`
	} `json:"comparable_sales"`
	AveragePrice *float64 `json:"average_price"`
	PriceTrend   string   `json:"price_trend"`
}

// Fetch returns recent sales, the average price, and the trend for the
// asset's category. Responses are cached per category.
func (c *MarketClient) Fetch(ctx context.Context, asset models.AssetContext) (map[string]interface{}, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}

	key := xcache.GenerateKey("src:market", asset.Category)
	return c.cached(ctx, key, func() (map[string]interface{}, error) {
		var resp marketResponse
		err := c.getJSON(ctx, c.url, map[string][]string{
			"category": {asset.Category},
			"apikey":   {c.apiKey},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.ComparableSales == nil {
			return nil, models.NewSourceError(c.kind, models.ErrKindMalformed, "missing comparable_sales")
		}

		sales := make([]map[string]interface{}, 0, len(resp.ComparableSales))
		sum := 0.0
		for _, s := range resp.ComparableSales {
			sales = append(sales, map[string]interface{}{
				"item":  s.Item,
				"price": s.Price,
				"date":  s.Date,
			})
			sum += s.Price
		}

		avg := 0.0
		if resp.AveragePrice != nil {
			avg = *resp.AveragePrice
		} else if len(sales) > 0 {
			avg = sum / float64(len(sales))
		}

		return map[string]interface{}{
			"recent_sales":  sales,
			"average_price": avg,
			"price_trend":   resp.PriceTrend,
		}, nil
	})
}
