package sources

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/ratelimit"
	xhttp "RWAPrice/pkg/http"
	xlogger "RWAPrice/pkg/logger"
)

// ERC-721 function selectors.
const (
	selName     = "0x06fdde03"
	selSymbol   = "0x95d89b41"
	selOwnerOf  = "0x6352211e"
	selTokenURI = "0xc87b56dd"
)

// ChainMetaClient reads on-chain NFT metadata over Ethereum JSON-RPC.
type ChainMetaClient struct {
	base
	rpcURL string
}

func NewChainMetaClient(rpcURL string, timeout time.Duration, limiter *ratelimit.Limiter, logger *xlogger.Logger) *ChainMetaClient {
	return &ChainMetaClient{
		base:   newBase(models.SourceChainMeta, timeout, limiter, nil, 0, logger),
		rpcURL: rpcURL,
	}
}

func (c *ChainMetaClient) Kind() models.SourceKind { return models.SourceChainMeta }

// Fetch reads name, symbol, owner, and token URI for the asset's bound
// ERC-721 contract. name/symbol are optional on-chain; their failures
// degrade to "Unknown" instead of failing the record.
func (c *ChainMetaClient) Fetch(ctx context.Context, asset models.AssetContext) (map[string]interface{}, error) {
	contract := asset.ContractAddress()
	if contract == "" {
		return nil, models.NewSourceError(c.kind, models.ErrKindUnavail, "asset has no contract address")
	}
	if err := c.allow(); err != nil {
		return nil, err
	}

	tokenID := int64(1)
	if v, ok := asset.Metadata["token_id"].(int64); ok && v > 0 {
		tokenID = v
	}
	tokenArg := fmt.Sprintf("%064x", tokenID)

	name := "Unknown"
	if ret, err := c.ethCall(ctx, contract, selName); err == nil {
		if s, err := decodeABIString(ret); err == nil {
			name = s
		}
	}
	symbol := "Unknown"
	if ret, err := c.ethCall(ctx, contract, selSymbol); err == nil {
		if s, err := decodeABIString(ret); err == nil {
			symbol = s
		}
	}

	ownerRet, err := c.ethCall(ctx, contract, selOwnerOf+tokenArg)
	if err != nil {
		return nil, err
	}
	owner, err := decodeABIAddress(ownerRet)
	if err != nil {
		return nil, models.NewSourceError(c.kind, models.ErrKindMalformed, "ownerOf return: %v", err)
	}

	tokenURI := ""
	if ret, err := c.ethCall(ctx, contract, selTokenURI+tokenArg); err == nil {
		if s, err := decodeABIString(ret); err == nil {
			tokenURI = s
		}
	}

	return map[string]interface{}{
		"contract":  contract,
		"token_id":  tokenID,
		"name":      name,
		"symbol":    symbol,
		"owner":     owner,
		"token_uri": tokenURI,
	}, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ethCall executes a read-only contract call and returns the hex return data.
func (c *ChainMetaClient) ethCall(ctx context.Context, to, data string) (string, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []interface{}{
			map[string]string{"to": to, "data": data},
			"latest",
		},
	}
	var resp rpcResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.rpcURL,
		Body:   req,
	}, &resp)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", models.NewSourceError(c.kind, models.ErrKindTimeout, "%v", err)
		}
		if strings.Contains(err.Error(), "decode json") {
			return "", models.NewSourceError(c.kind, models.ErrKindMalformed, "%v", err)
		}
		return "", models.NewSourceError(c.kind, models.ErrKindUnavail, "%v", err)
	}
	if resp.Error != nil {
		return "", models.NewSourceError(c.kind, models.ErrKindUnavail, "rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// decodeABIString decodes a single ABI-encoded string return value.
func decodeABIString(ret string) (string, error) {
	h := strings.TrimPrefix(ret, "0x")
	if len(h) < 128 {
		return "", fmt.Errorf("return too short: %d", len(h))
	}
	offset, err := strconv.ParseUint(h[:64], 16, 32)
	if err != nil {
		return "", fmt.Errorf("bad offset word: %w", err)
	}
	pos := offset * 2
	if uint64(len(h)) < pos+64 {
		return "", fmt.Errorf("offset out of range")
	}
	strLen, err := strconv.ParseUint(h[pos:pos+64], 16, 32)
	if err != nil {
		return "", fmt.Errorf("bad length word: %w", err)
	}
	end := pos + 64 + strLen*2
	if uint64(len(h)) < end {
		return "", fmt.Errorf("string data truncated")
	}
	b, err := hex.DecodeString(h[pos+64 : end])
	if err != nil {
		return "", fmt.Errorf("bad string data: %w", err)
	}
	return string(b), nil
}

// decodeABIAddress decodes a single ABI-encoded address return value.
func decodeABIAddress(ret string) (string, error) {
	h := strings.TrimPrefix(ret, "0x")
	if len(h) < 64 {
		return "", fmt.Errorf("return too short: %d", len(h))
	}
	word := h[:64]
	if _, err := hex.DecodeString(word); err != nil {
		return "", fmt.Errorf("bad address word: %w", err)
	}
	return "0x" + word[24:], nil
}
