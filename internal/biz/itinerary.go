package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/data"
	"Itinera/internal/model"
	pkglog "Itinera/pkg/log"
	"Itinera/pkg/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// defaultResultTTL is how long a generated itinerary stays cached.
const defaultResultTTL = time.Hour

// ItineraryUsecase composes the result cache, admission gate, upstream
// breaker and upstream client into the generation request path:
//
//	cache hit -> return
//	admission (bounded wait) -> Overloaded on timeout
//	breaker open -> local fallback
//	upstream call -> cache write, or breaker failure + local fallback
//	slot released on every path
type ItineraryUsecase struct {
	cache     ResultCache
	gate      *AdmissionGate
	breaker   *CircuitBreaker
	upstream  UpstreamClient
	resultTTL time.Duration

	metrics *metrics.Metrics
	log     log.Logger
}

// NewItineraryUsecase creates the orchestrator around the upstream breaker.
func NewItineraryUsecase(
	cache ResultCache,
	gate *AdmissionGate,
	breakers *Breakers,
	upstream UpstreamClient,
	c *conf.Resilience,
	m *metrics.Metrics,
	logger log.Logger,
) *ItineraryUsecase {
	ttl := c.GetResultTTL()
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	return &ItineraryUsecase{
		cache:     cache,
		gate:      gate,
		breaker:   breakers.Upstream,
		upstream:  upstream,
		resultTTL: ttl,
		metrics:   m,
		log:       log.With(logger, "module", "biz/itinerary"),
	}
}

// Generate returns an itinerary for an already validated request.
//
// The only error returned for a well-formed request is Overloaded (or the
// context error when the caller gives up while waiting for a slot).
// Upstream and cache failures are absorbed into a fallback result.
func (uc *ItineraryUsecase) Generate(ctx context.Context, req *model.TripRequest) (*model.GenerateResult, error) {
	days, err := req.Days()
	if err != nil {
		return nil, errors.BadRequest("INVALID_ARGUMENT", err.Error())
	}

	key := data.MakeFingerprintKey(req.Destination, days, req.Budget, req.Preferences.Flags())
	logger := pkglog.NewLogHelper(log.With(uc.log, "trace_id", uuid.NewString(), "cache_key", key))

	if it, ok := uc.lookup(ctx, key, logger); ok {
		logger.Cache("itinerary served from cache")
		return uc.result(it, model.SourceCache, key), nil
	}

	var res *model.GenerateResult
	err = uc.gate.Run(ctx, func(ctx context.Context) error {
		res = uc.generate(ctx, req, days, key, logger)
		return nil
	})
	if err != nil {
		if IsOverloaded(err) {
			uc.metrics.ObserveResult("overloaded")
		}
		return nil, err
	}
	return res, nil
}

// lookup returns a cached itinerary; undecodable entries count as misses.
func (uc *ItineraryUsecase) lookup(ctx context.Context, key string, logger *pkglog.LogHelper) (*model.Itinerary, bool) {
	raw, ok := uc.cache.Get(ctx, key)
	if !ok {
		uc.metrics.ObserveCacheLookup(false)
		return nil, false
	}

	var it model.Itinerary
	if err := json.Unmarshal([]byte(raw), &it); err != nil || !it.Usable() {
		logger.Warnw("msg", "ignoring unreadable cache entry", "error", err)
		uc.metrics.ObserveCacheLookup(false)
		return nil, false
	}
	uc.metrics.ObserveCacheLookup(true)
	return &it, true
}

// generate runs while holding an admission slot and never fails.
func (uc *ItineraryUsecase) generate(ctx context.Context, req *model.TripRequest, days int, key string, logger *pkglog.LogHelper) *model.GenerateResult {
	if !uc.breaker.CanExecute() {
		logger.Fallback("upstream circuit open, serving fallback",
			"provider", uc.upstream.Name())
		return uc.result(fallbackItinerary(req, days), model.SourceFallback, key)
	}

	start := time.Now()
	raw, err := uc.call(ctx, buildPrompt(req, days))
	elapsed := time.Since(start)
	uc.metrics.ObserveUpstream(uc.upstream.Name(), err, elapsed)

	if err != nil && ctx.Err() != nil {
		// The caller gave up; the upstream has not failed.
		uc.breaker.Release()
		logger.Fallback("request cancelled during upstream call, serving fallback",
			"provider", uc.upstream.Name(),
			"duration_ms", elapsed.Milliseconds(),
			"error", ctx.Err())
		return uc.result(fallbackItinerary(req, days), model.SourceFallback, key)
	}
	if err != nil {
		uc.breaker.RecordFailure()
		logger.Errorw("msg", "upstream generation failed, serving fallback",
			"provider", uc.upstream.Name(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return uc.result(fallbackItinerary(req, days), model.SourceFallback, key)
	}
	uc.breaker.RecordSuccess()

	it, err := parseItinerary(raw)
	if err != nil {
		logger.Fallback("upstream output not usable, serving fallback",
			"provider", uc.upstream.Name(),
			"error", err)
		return uc.result(fallbackItinerary(req, days), model.SourceFallback, key)
	}

	if payload, err := json.Marshal(it); err == nil {
		uc.cache.Set(ctx, key, string(payload), uc.resultTTL)
	}

	logger.Upstream("itinerary generated",
		"provider", uc.upstream.Name(),
		"duration_ms", elapsed.Milliseconds())
	return uc.result(it, model.SourceUpstream, key)
}

// call invokes the upstream, turning a panic into an error so that the
// breaker always sees an outcome for the probe it granted.
func (uc *ItineraryUsecase) call(ctx context.Context, prompt string) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upstream %s panicked: %v", uc.upstream.Name(), r)
		}
	}()
	return uc.upstream.Generate(ctx, prompt, systemInstruction)
}

func (uc *ItineraryUsecase) result(it *model.Itinerary, source model.ResultSource, key string) *model.GenerateResult {
	uc.metrics.ObserveResult(string(source))
	return &model.GenerateResult{
		Itinerary: it,
		Source:    source,
		CacheKey:  key,
	}
}
