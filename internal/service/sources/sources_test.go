package sources

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/ratelimit"
	xcache "RWAPrice/pkg/cache"
	xlogger "RWAPrice/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func asSourceError(t *testing.T, err error) *models.SourceError {
	t.Helper()
	require.Error(t, err)
	srcErr, ok := err.(*models.SourceError)
	require.True(t, ok, "expected *models.SourceError, got %T", err)
	return srcErr
}

func TestMarketFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "real_estate", r.URL.Query().Get("category"))
		require.Equal(t, "key-1", r.URL.Query().Get("apikey"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"comparable_sales": []map[string]interface{}{
				{"item": "Tower A", "price": 100.0, "date": "2025-05-01"},
				{"item": "Tower B", "price": 300.0, "date": "2025-05-02"},
			},
			"price_trend": "rising",
		})
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, "key-1", time.Second, 0, nil, nil, testLogger(t))
	payload, err := c.Fetch(context.Background(), models.AssetContext{AssetID: "rwa-1", Category: "real_estate"})
	require.NoError(t, err)
	// average computed when upstream omits it
	require.Equal(t, 200.0, payload["average_price"])
	require.Equal(t, "rising", payload["price_trend"])
	require.Len(t, payload["recent_sales"], 2)
}

func TestMarketFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"price_trend": "flat"}`))
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, "", time.Second, 0, nil, nil, testLogger(t))
	_, err := c.Fetch(context.Background(), models.AssetContext{Category: "art"})
	require.Equal(t, models.ErrKindMalformed, asSourceError(t, err).Kind)
}

func TestMarketFetchCachesPerCategory(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"comparable_sales": [], "average_price": 50, "price_trend": "flat"}`))
	}))
	defer srv.Close()

	cache := xcache.NewMemoryCache()
	c := NewMarketClient(srv.URL, "", time.Second, time.Minute, nil, cache, testLogger(t))

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), models.AssetContext{Category: "art"})
		require.NoError(t, err)
	}
	require.Equal(t, 1, calls)

	_, err := c.Fetch(context.Background(), models.AssetContext{Category: "commodities"})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestMarketFetchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, "", time.Second, 0, nil, nil, testLogger(t))
	_, err := c.Fetch(context.Background(), models.AssetContext{Category: "art"})
	require.Equal(t, models.ErrKindUnavail, asSourceError(t, err).Kind)
}

func TestMarketFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"comparable_sales": []}`))
	}))
	defer srv.Close()

	limiter := ratelimit.New(1, 0.001)
	c := NewMarketClient(srv.URL, "", time.Second, 0, limiter, nil, testLogger(t))

	_, err := c.Fetch(context.Background(), models.AssetContext{Category: "art"})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), models.AssetContext{Category: "art"})
	srcErr := asSourceError(t, err)
	require.Equal(t, models.ErrKindUnavail, srcErr.Kind)
	require.Contains(t, srcErr.Message, "rate limited")
}

func TestSentimentFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "rwa-1", r.URL.Query().Get("asset_id"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"posts": []map[string]string{
				{"text": "strong growth and exciting momentum for tokenized towers", "origin": "x"},
				{"text": "risk of decline, bearish on overvalued listings", "origin": "news"},
			},
		})
	}))
	defer srv.Close()

	c := NewSentimentClient(srv.URL, time.Second, nil, testLogger(t))
	payload, err := c.Fetch(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.NoError(t, err)
	require.Equal(t, 2, payload["mention_volume"])

	breakdown := payload["source_breakdown"].(map[string]interface{})
	require.Greater(t, breakdown["x"].(float64), 0.0)
	require.Less(t, breakdown["news"].(float64), 0.0)

	keywords := payload["trending_keywords"].([]string)
	require.NotEmpty(t, keywords)
	require.LessOrEqual(t, len(keywords), 5)
}

func TestSentimentFetchMissingPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewSentimentClient(srv.URL, time.Second, nil, testLogger(t))
	_, err := c.Fetch(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.Equal(t, models.ErrKindMalformed, asSourceError(t, err).Kind)
}

func TestMacroFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"inflation_rate": 3.1, "interest_rate": 4.5, "consumer_confidence": 98.2, "gdp_growth": 2.0}`))
	}))
	defer srv.Close()

	c := NewMacroClient(srv.URL, "", time.Second, 0, nil, nil, testLogger(t))
	payload, err := c.Fetch(context.Background(), models.AssetContext{})
	require.NoError(t, err)
	require.Equal(t, 3.1, payload["inflation_rate"])
	require.Equal(t, 2.0, payload["gdp_growth"])
}

func TestMacroFetchIncompleteSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"inflation_rate": 3.1}`))
	}))
	defer srv.Close()

	c := NewMacroClient(srv.URL, "", time.Second, 0, nil, nil, testLogger(t))
	_, err := c.Fetch(context.Background(), models.AssetContext{})
	require.Equal(t, models.ErrKindMalformed, asSourceError(t, err).Kind)
}

func TestMacroFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewMacroClient(srv.URL, "", time.Second, 0, nil, nil, testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, models.AssetContext{})
	require.Equal(t, models.ErrKindTimeout, asSourceError(t, err).Kind)
}

// abiString encodes s as a single ABI-encoded string return value.
func abiString(s string) string {
	data := hex.EncodeToString([]byte(s))
	if pad := len(data) % 64; pad != 0 {
		data += strings.Repeat("0", 64-pad)
	}
	return fmt.Sprintf("0x%064x%064x%s", 32, len(s), data)
}

func TestDecodeABIString(t *testing.T) {
	got, err := decodeABIString(abiString("Deed Token"))
	require.NoError(t, err)
	require.Equal(t, "Deed Token", got)

	_, err = decodeABIString("0x1234")
	require.Error(t, err)

	_, err = decodeABIString("0x" + strings.Repeat("f", 128))
	require.Error(t, err)
}

func TestDecodeABIAddress(t *testing.T) {
	ret := "0x" + strings.Repeat("0", 24) + "a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	got, err := decodeABIAddress(ret)
	require.NoError(t, err)
	require.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", got)

	_, err = decodeABIAddress("0xdead")
	require.Error(t, err)
}

func TestChainMetaFetch(t *testing.T) {
	owner := strings.Repeat("0", 24) + "1111111111111111111111111111111111111111"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_call", req.Method)

		call := req.Params[0].(map[string]interface{})
		data := call["data"].(string)

		var result string
		switch {
		case strings.HasPrefix(data, selName):
			result = abiString("Deed Token")
		case strings.HasPrefix(data, selSymbol):
			result = abiString("DEED")
		case strings.HasPrefix(data, selOwnerOf):
			result = "0x" + owner
		case strings.HasPrefix(data, selTokenURI):
			result = abiString("ipfs://QmDeed/7")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
	defer srv.Close()

	c := NewChainMetaClient(srv.URL, time.Second, nil, testLogger(t))
	asset := models.AssetContext{
		AssetID: "rwa-1",
		Metadata: map[string]interface{}{
			"contract_address": "0x2222222222222222222222222222222222222222",
			"token_id":         int64(7),
		},
	}
	payload, err := c.Fetch(context.Background(), asset)
	require.NoError(t, err)
	require.Equal(t, "Deed Token", payload["name"])
	require.Equal(t, "DEED", payload["symbol"])
	require.Equal(t, "0x1111111111111111111111111111111111111111", payload["owner"])
	require.Equal(t, "ipfs://QmDeed/7", payload["token_uri"])
	require.Equal(t, int64(7), payload["token_id"])
}

func TestChainMetaFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewChainMetaClient(srv.URL, time.Second, nil, testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	asset := models.AssetContext{
		AssetID:  "rwa-1",
		Metadata: map[string]interface{}{"contract_address": "0x2222222222222222222222222222222222222222"},
	}
	_, err := c.Fetch(ctx, asset)
	require.Equal(t, models.ErrKindTimeout, asSourceError(t, err).Kind)
}

func TestChainMetaFetchNoContract(t *testing.T) {
	c := NewChainMetaClient("http://127.0.0.1:0", time.Second, nil, testLogger(t))
	_, err := c.Fetch(context.Background(), models.AssetContext{AssetID: "rwa-1"})
	require.Equal(t, models.ErrKindUnavail, asSourceError(t, err).Kind)
}

func TestChainMetaNameDegradesToUnknown(t *testing.T) {
	owner := strings.Repeat("0", 24) + "1111111111111111111111111111111111111111"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []interface{} `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := req.Params[0].(map[string]interface{})["data"].(string)

		if strings.HasPrefix(data, selOwnerOf) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": "0x" + owner})
			return
		}
		// name/symbol/tokenURI calls revert
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]interface{}{"code": -32000, "message": "execution reverted"},
		})
	}))
	defer srv.Close()

	c := NewChainMetaClient(srv.URL, time.Second, nil, testLogger(t))
	asset := models.AssetContext{
		AssetID:  "rwa-1",
		Metadata: map[string]interface{}{"contract_address": "0x2222222222222222222222222222222222222222"},
	}
	payload, err := c.Fetch(context.Background(), asset)
	require.NoError(t, err)
	require.Equal(t, "Unknown", payload["name"])
	require.Equal(t, "Unknown", payload["symbol"])
	require.Equal(t, "", payload["token_uri"])
}

func TestPolarity(t *testing.T) {
	require.Greater(t, Polarity("strong growth and exciting momentum"), 0.0)
	require.Less(t, Polarity("crash and losses, very bearish"), 0.0)
	require.Zero(t, Polarity(""))
	require.Zero(t, Polarity("the building is on main street"))
}

func TestTopKeywords(t *testing.T) {
	texts := []string{
		"tokenized towers keep selling",
		"tokenized warehouses too",
		"tokenized everything, honestly",
	}
	got := topKeywords(texts, 2)
	require.Len(t, got, 2)
	require.Equal(t, "tokenized", got[0])
}
