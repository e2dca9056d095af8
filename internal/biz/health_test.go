package biz

import (
	"context"
	"testing"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthFixture struct {
	uc       *HealthUsecase
	probe    *StorageProbe
	cache    *fakeCache
	breakers *Breakers
	gate     *AdmissionGate
}

func newHealthFixture() *healthFixture {
	res := &conf.Resilience{
		Admission:      &conf.Resilience_Admission{Capacity: 4, AcquireTimeout: time.Second},
		StorageBreaker: &conf.Resilience_Breaker{FailureThreshold: 3, RecoveryTimeout: 30 * time.Second},
	}
	f := &healthFixture{cache: newFakeCache()}
	f.breakers = NewBreakers(res, nil, testLogger())
	f.gate = NewAdmissionGate(res, nil, testLogger())
	f.probe = NewStorageProbe(f.cache, f.breakers, testLogger())
	f.uc = NewHealthUsecase(f.probe, f.breakers, f.gate, new(MockUpstream))
	return f
}

func TestStorageProbe_FeedsBreaker(t *testing.T) {
	f := newHealthFixture()
	now := time.Now()
	f.breakers.Storage.now = func() time.Time { return now }
	ctx := context.Background()

	f.cache.setHealth(model.CacheStatusUnhealthy)
	for i := 0; i < 2; i++ {
		f.probe.Probe(ctx)
		require.Equal(t, StateClosed, f.breakers.Storage.State())
	}
	f.probe.Probe(ctx)
	require.Equal(t, StateOpen, f.breakers.Storage.State())

	// While open the store is not touched and the last backend is kept
	h := f.probe.Probe(ctx)
	assert.Equal(t, model.CacheStatusUnhealthy, h.Status)
	assert.Equal(t, model.CacheBackendMemory, h.Backend)
	assert.Equal(t, "storage circuit open", h.Detail)

	// Recovery goes through HALF_OPEN
	f.cache.setHealth(model.CacheStatusHealthy)
	now = now.Add(30 * time.Second)
	h = f.probe.Probe(ctx)
	assert.Equal(t, model.CacheStatusHealthy, h.Status)
	assert.Equal(t, StateClosed, f.breakers.Storage.State())
}

func TestStorageProbe_DisconnectedIsNotAFailure(t *testing.T) {
	f := newHealthFixture()
	f.cache.health = model.CacheHealth{Status: model.CacheStatusDisconnected, Backend: model.CacheBackendNone}

	for i := 0; i < 5; i++ {
		f.probe.Run()
	}
	assert.Equal(t, StateClosed, f.breakers.Storage.State())
	assert.Equal(t, uint64(5), f.breakers.Storage.Stats().SuccessCount)
}

func TestDiagnostics_Healthy(t *testing.T) {
	f := newHealthFixture()

	d := f.uc.Diagnostics(context.Background())

	assert.Equal(t, HealthHealthy, d.Status)
	assert.Equal(t, "mock", d.Upstream)
	assert.Equal(t, model.CacheStatusHealthy, d.Cache.Status)
	require.Contains(t, d.Breakers, BreakerUpstream)
	require.Contains(t, d.Breakers, BreakerStorage)
	assert.Equal(t, "CLOSED", d.Breakers[BreakerUpstream].State)
	assert.Equal(t, int64(4), d.Admission.Capacity)
	assert.Equal(t, int64(4), d.Admission.Available)
}

func TestDiagnostics_ReportsAvailableSlots(t *testing.T) {
	f := newHealthFixture()
	release := hold(t, f.gate, 3)
	defer release()

	d := f.uc.Diagnostics(context.Background())
	assert.Equal(t, int64(1), d.Admission.Available)
	assert.Equal(t, int64(3), d.Admission.InFlight)
}

func TestDiagnostics_Degraded(t *testing.T) {
	t.Run("cache failing", func(t *testing.T) {
		f := newHealthFixture()
		f.cache.setHealth(model.CacheStatusUnhealthy)

		assert.Equal(t, HealthDegraded, f.uc.Diagnostics(context.Background()).Status)
	})

	t.Run("upstream breaker open", func(t *testing.T) {
		f := newHealthFixture()
		for i := 0; i < 5; i++ {
			f.breakers.Upstream.RecordFailure()
		}

		d := f.uc.Diagnostics(context.Background())
		assert.Equal(t, HealthDegraded, d.Status)
		assert.Equal(t, "OPEN", d.Breakers[BreakerUpstream].State)
	})
}

func TestDiagnostics_UnhealthyWhenStorageBreakerOpen(t *testing.T) {
	f := newHealthFixture()
	f.cache.setHealth(model.CacheStatusUnhealthy)

	ctx := context.Background()
	f.uc.Diagnostics(ctx)
	f.uc.Diagnostics(ctx)
	d := f.uc.Diagnostics(ctx)

	assert.Equal(t, HealthUnhealthy, d.Status)
	assert.Equal(t, "OPEN", d.Breakers[BreakerStorage].State)
}
