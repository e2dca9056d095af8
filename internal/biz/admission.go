package biz

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/model"
	pkglog "Itinera/pkg/log"
	"Itinera/pkg/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/semaphore"
)

// ReasonOverloaded is the error reason returned when the gate is saturated.
const ReasonOverloaded = "OVERLOADED"

// ErrOverloaded builds the error returned when no admission slot frees up
// within the acquire timeout. It carries a retry hint in seconds.
func ErrOverloaded(retryAfter time.Duration) *errors.Error {
	seconds := int64(retryAfter / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return errors.New(
		429,
		ReasonOverloaded,
		fmt.Sprintf("service is at capacity, retry after %ds", seconds),
	).WithMetadata(map[string]string{
		"retry_after": strconv.FormatInt(seconds, 10),
	})
}

// IsOverloaded reports whether err signals a saturated admission gate.
func IsOverloaded(err error) bool {
	return errors.Reason(err) == ReasonOverloaded
}

// RetryAfter extracts the retry hint in seconds from a rate limit or
// overload error, or 0 when there is none.
func RetryAfter(err error) int64 {
	e := errors.FromError(err)
	if e == nil {
		return 0
	}
	n, _ := strconv.ParseInt(e.GetMetadata()["retry_after"], 10, 64)
	return n
}

// AdmissionGate bounds the number of concurrent expensive operations.
type AdmissionGate struct {
	sem        *semaphore.Weighted
	capacity   int64
	inFlight   atomic.Int64
	timeout    time.Duration
	retryAfter time.Duration

	metrics *metrics.Metrics
	logger  *pkglog.LogHelper
}

// NewAdmissionGate creates a gate from configuration. Capacity defaults to
// 10, the acquire timeout and retry hint to 10s.
func NewAdmissionGate(c *conf.Resilience, m *metrics.Metrics, logger log.Logger) *AdmissionGate {
	capacity := int64(10)
	timeout := 10 * time.Second
	retryAfter := 10 * time.Second

	if a := c.GetAdmission(); a != nil {
		if a.Capacity > 0 {
			capacity = a.Capacity
		}
		if a.AcquireTimeout > 0 {
			timeout = a.AcquireTimeout
		}
		if a.RetryAfter > 0 {
			retryAfter = a.RetryAfter
		}
	}

	return &AdmissionGate{
		sem:        semaphore.NewWeighted(capacity),
		capacity:   capacity,
		timeout:    timeout,
		retryAfter: retryAfter,
		metrics:    m,
		logger:     pkglog.NewLogHelper(log.With(logger, "module", "biz/admission")),
	}
}

// Run waits up to the acquire timeout for a slot, runs fn while holding it
// and releases the slot on every exit path, panics included.
//
// If no slot frees up in time Run returns ErrOverloaded without calling fn.
// If ctx is done first, ctx.Err() is returned.
func (g *AdmissionGate) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()

	return fn(ctx)
}

func (g *AdmissionGate) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.metrics.Rejected()
		g.logger.Admission("admission gate saturated",
			"capacity", g.capacity,
			"timeout", g.timeout.String())
		return ErrOverloaded(g.retryAfter)
	}

	g.metrics.SetInFlight(g.inFlight.Add(1))
	return nil
}

func (g *AdmissionGate) release() {
	g.metrics.SetInFlight(g.inFlight.Add(-1))
	g.sem.Release(1)
}

// Capacity returns the configured number of slots.
func (g *AdmissionGate) Capacity() int64 {
	return g.capacity
}

// InFlight returns the number of slots currently held.
func (g *AdmissionGate) InFlight() int64 {
	return g.inFlight.Load()
}

// Available returns the number of free slots.
func (g *AdmissionGate) Available() int64 {
	return g.capacity - g.inFlight.Load()
}

// Stats returns a snapshot for diagnostics.
func (g *AdmissionGate) Stats() model.AdmissionStats {
	inFlight := g.inFlight.Load()
	return model.AdmissionStats{
		Capacity:  g.capacity,
		Available: g.capacity - inFlight,
		InFlight:  inFlight,
	}
}
