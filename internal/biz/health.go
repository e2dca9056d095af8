package biz

import (
	"context"

	"Itinera/internal/model"
)

// Overall health values reported by Diagnostics.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthUsecase assembles the read-only diagnostics snapshot.
type HealthUsecase struct {
	probe    *StorageProbe
	breakers *Breakers
	gate     *AdmissionGate
	upstream UpstreamClient
}

// NewHealthUsecase creates a new health use case.
func NewHealthUsecase(probe *StorageProbe, breakers *Breakers, gate *AdmissionGate, upstream UpstreamClient) *HealthUsecase {
	return &HealthUsecase{
		probe:    probe,
		breakers: breakers,
		gate:     gate,
		upstream: upstream,
	}
}

// Diagnostics probes the store and returns cache health, every breaker's
// stats and the admission gate occupancy.
//
// Status is unhealthy while the storage breaker is OPEN, degraded when the
// cache is failing or the upstream breaker is not CLOSED, healthy otherwise.
func (uc *HealthUsecase) Diagnostics(ctx context.Context) *model.Diagnostics {
	cache := uc.probe.Probe(ctx)

	breakers := make(map[string]model.BreakerStats)
	for name, cb := range uc.breakers.All() {
		breakers[name] = cb.Stats()
	}

	status := HealthHealthy
	switch {
	case uc.breakers.Storage.State() == StateOpen:
		status = HealthUnhealthy
	case cache.Status == model.CacheStatusUnhealthy,
		uc.breakers.Upstream.State() != StateClosed:
		status = HealthDegraded
	}

	return &model.Diagnostics{
		Status:    status,
		Upstream:  uc.upstream.Name(),
		Cache:     cache,
		Breakers:  breakers,
		Admission: uc.gate.Stats(),
	}
}
