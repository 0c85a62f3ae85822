// Package sources implements the four external signal source clients behind
// the domain SignalSource interface. Each client classifies its own failures
// into the typed source error kinds; the aggregator does no retries and no
// reinterpretation beyond timeouts.
package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"RWAPrice/internal/domain/models"
	"RWAPrice/internal/service/ratelimit"
	xcache "RWAPrice/pkg/cache"
	xhttp "RWAPrice/pkg/http"
	xlogger "RWAPrice/pkg/logger"
)

// base holds what every source client shares: an HTTP client with its own
// timeout, the outbound rate limiter, and optional response caching.
type base struct {
	kind    models.SourceKind
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	cache   xcache.Service
	ttl     time.Duration
	logger  *xlogger.Logger
}

func newBase(kind models.SourceKind, timeout time.Duration, limiter *ratelimit.Limiter, cache xcache.Service, ttl time.Duration, logger *xlogger.Logger) base {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return base{
		kind:    kind,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: limiter,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// allow consumes one rate-limit token for this source. A dry bucket is an
// unavailable failure, not a timeout: the upstream was never called.
func (b base) allow() error {
	if b.limiter == nil {
		return nil
	}
	if !b.limiter.Allow(string(b.kind)) {
		return models.NewSourceError(b.kind, models.ErrKindUnavail, "rate limited")
	}
	return nil
}

// getJSON fetches url into dest and folds transport errors into the typed
// failure kinds. Decode errors are malformed_response: the upstream answered
// with something we cannot use.
func (b base) getJSON(ctx context.Context, url string, query map[string][]string, dest interface{}) error {
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: query,
	}, dest)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewSourceError(b.kind, models.ErrKindTimeout, "%v", err)
	}
	if strings.Contains(err.Error(), "decode json") {
		return models.NewSourceError(b.kind, models.ErrKindMalformed, "%v", err)
	}
	return models.NewSourceError(b.kind, models.ErrKindUnavail, "%v", err)
}

// cached runs fetch behind the response cache when one is configured.
func (b base) cached(ctx context.Context, key string, fetch func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if b.cache != nil && b.ttl > 0 {
		var hit map[string]interface{}
		if err := b.cache.Get(ctx, key, &hit); err == nil && hit != nil {
			return hit, nil
		}
	}
	payload, err := fetch()
	if err != nil {
		return nil, err
	}
	if b.cache != nil && b.ttl > 0 {
		if err := b.cache.Set(ctx, key, payload, b.ttl); err != nil {
			b.logger.Debug("source cache set failed", xlogger.String("key", key), xlogger.Error(err))
		}
	}
	return payload, nil
}
