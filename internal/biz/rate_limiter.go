package biz

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/data"
	pkglog "Itinera/pkg/log"
	"Itinera/pkg/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// ReasonRateLimitExceeded is the error reason for per-client limiting.
const ReasonRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

// RateLimiterUseCase implements fixed-window request limiting per client.
// Counters live in the result cache, so the limiter stops limiting (and
// lets requests through) when the cache is unavailable.
type RateLimiterUseCase struct {
	cache  ResultCache
	limit  int64
	window time.Duration
	now    func() time.Time

	metrics *metrics.Metrics
	logger  *pkglog.LogHelper
}

// NewRateLimiterUseCase creates a new rate limiter use case.
func NewRateLimiterUseCase(cache ResultCache, c *conf.Resilience, m *metrics.Metrics, logger log.Logger) *RateLimiterUseCase {
	uc := &RateLimiterUseCase{
		cache:   cache,
		window:  time.Minute,
		now:     time.Now,
		metrics: m,
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "biz/ratelimit")),
	}
	if rl := c.GetRateLimit(); rl != nil {
		uc.limit = rl.RequestsPerWindow
		if rl.Window >= time.Second {
			uc.window = rl.Window
		}
	}
	return uc
}

// newRateLimitExceededError creates a 429 error carrying the retry hint.
func newRateLimitExceededError(current, limit, retryAfter int64) error {
	return errors.New(
		429, // HTTP 429 Too Many Requests
		ReasonRateLimitExceeded,
		fmt.Sprintf("rate limit exceeded: current=%d limit=%d retry_after=%ds",
			current, limit, retryAfter),
	).WithMetadata(map[string]string{
		"retry_after": strconv.FormatInt(retryAfter, 10),
	})
}

// IsRateLimited reports whether err is a rate limit rejection.
func IsRateLimited(err error) bool {
	return errors.Reason(err) == ReasonRateLimitExceeded
}

// CheckRate counts one request for clientID in the current window.
// Returns a 429 error if the limit is exceeded, nil otherwise.
// Cache degradation: a zero count means the counter is unavailable and the
// request is allowed.
func (uc *RateLimiterUseCase) CheckRate(ctx context.Context, clientID string) error {
	if uc.limit <= 0 {
		// No limit configured, allow request
		return nil
	}

	windowSeconds := int64(uc.window / time.Second)
	now := uc.now().Unix()
	bucket := now / windowSeconds

	key := data.BuildCacheKey(data.CacheKeyRate, clientID, strconv.FormatInt(bucket, 10))
	count := uc.cache.Increment(ctx, key, uc.window)
	if count == 0 {
		uc.logger.Debugw("msg", "rate counter unavailable, request allowed", "client", clientID)
		return nil
	}

	if count > uc.limit {
		retryAfter := windowSeconds - now%windowSeconds
		uc.metrics.Limited()
		uc.logger.RateLimit("rate limit exceeded",
			"client", clientID,
			"current", count,
			"limit", uc.limit)
		return newRateLimitExceededError(count, uc.limit, retryAfter)
	}

	return nil
}
