package biz

import (
	"context"
	"sync"

	"Itinera/internal/model"
	pkglog "Itinera/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// StorageProbe checks the cache store and feeds the storage breaker.
// It runs from the health endpoint and from the periodic cron job.
type StorageProbe struct {
	cache   ResultCache
	breaker *CircuitBreaker
	logger  *pkglog.LogHelper

	mu   sync.Mutex
	last model.CacheHealth
}

// NewStorageProbe creates a probe around the storage breaker.
func NewStorageProbe(cache ResultCache, breakers *Breakers, logger log.Logger) *StorageProbe {
	return &StorageProbe{
		cache:   cache,
		breaker: breakers.Storage,
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "biz/storage-probe")),
		last: model.CacheHealth{
			Status:  model.CacheStatusDisconnected,
			Backend: model.CacheBackendNone,
		},
	}
}

// Probe checks the store unless the storage breaker is open, records the
// outcome on the breaker and returns the resulting health snapshot.
//
// A disconnected cache is the configured no-cache mode and counts as a
// success.
func (p *StorageProbe) Probe(ctx context.Context) model.CacheHealth {
	if !p.breaker.CanExecute() {
		p.mu.Lock()
		h := p.last
		p.mu.Unlock()

		h.Status = model.CacheStatusUnhealthy
		h.Detail = "storage circuit open"
		return h
	}

	h := p.cache.Health(ctx)
	if h.Status == model.CacheStatusUnhealthy {
		p.breaker.RecordFailure()
		p.logger.Warnw("msg", "storage probe failed",
			"backend", h.Backend,
			"detail", h.Detail)
	} else {
		p.breaker.RecordSuccess()
	}

	p.mu.Lock()
	p.last = h
	p.mu.Unlock()

	return h
}

// Run probes once and discards the result; used by the scheduler.
func (p *StorageProbe) Run() {
	h := p.Probe(context.Background())
	p.logger.Probe("storage probe completed",
		"status", h.Status,
		"backend", h.Backend,
		"breaker", p.breaker.State().String())
}
