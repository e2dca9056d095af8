package biz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Itinera/internal/conf"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(capacity int64, timeout time.Duration) *AdmissionGate {
	return NewAdmissionGate(&conf.Resilience{
		Admission: &conf.Resilience_Admission{
			Capacity:       capacity,
			AcquireTimeout: timeout,
			RetryAfter:     10 * time.Second,
		},
	}, nil, testLogger())
}

// hold occupies n slots until the returned release function is called.
func hold(t *testing.T, g *AdmissionGate, n int) func() {
	t.Helper()

	release := make(chan struct{})
	var entered sync.WaitGroup
	var done sync.WaitGroup
	for i := 0; i < n; i++ {
		entered.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			err := g.Run(context.Background(), func(context.Context) error {
				entered.Done()
				<-release
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	entered.Wait()

	return func() {
		close(release)
		done.Wait()
	}
}

func TestNewAdmissionGate_Defaults(t *testing.T) {
	g := NewAdmissionGate(nil, nil, testLogger())

	assert.Equal(t, int64(10), g.Capacity())
	assert.Equal(t, int64(10), g.Available())
	assert.Equal(t, int64(0), g.InFlight())
	assert.Equal(t, 10*time.Second, g.timeout)
}

func TestAdmissionGate_AdmitsExactlyCapacity(t *testing.T) {
	g := newTestGate(3, 50*time.Millisecond)

	release := hold(t, g, 3)
	assert.Equal(t, int64(3), g.InFlight())
	assert.Equal(t, int64(0), g.Available())

	called := false
	err := g.Run(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, IsOverloaded(err))
	assert.False(t, called, "rejected work must not run")

	release()
	assert.Equal(t, int64(0), g.InFlight())
	assert.Equal(t, int64(3), g.Available())
}

func TestAdmissionGate_WaitsForRelease(t *testing.T) {
	g := newTestGate(1, 2*time.Second)
	release := hold(t, g, 1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	err := g.Run(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestAdmissionGate_ReleasesOnError(t *testing.T) {
	g := newTestGate(1, 50*time.Millisecond)
	boom := errors.New("upstream exploded")

	err := g.Run(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), g.InFlight())

	// Slot is usable again
	assert.NoError(t, g.Run(context.Background(), func(context.Context) error { return nil }))
}

func TestAdmissionGate_ReleasesOnPanic(t *testing.T) {
	g := newTestGate(1, 50*time.Millisecond)

	assert.Panics(t, func() {
		_ = g.Run(context.Background(), func(context.Context) error { panic("unexpected fault") })
	})
	assert.Equal(t, int64(0), g.InFlight())
	assert.Equal(t, int64(1), g.Available())
}

func TestAdmissionGate_CallerCancellation(t *testing.T) {
	g := newTestGate(1, time.Second)
	release := hold(t, g, 1)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Run(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsOverloaded(err))
}

func TestAdmissionGate_NeverExceedsCapacity(t *testing.T) {
	const capacity = 4
	g := newTestGate(capacity, 5*time.Second)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Run(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				assert.LessOrEqual(t, g.InFlight(), int64(capacity))
				time.Sleep(2 * time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(capacity))
	assert.Equal(t, int64(0), g.InFlight())
}

func TestErrOverloaded(t *testing.T) {
	err := ErrOverloaded(10 * time.Second)

	assert.Equal(t, int32(429), err.Code)
	assert.Equal(t, ReasonOverloaded, err.Reason)
	assert.Equal(t, "10", err.Metadata["retry_after"])
	assert.True(t, IsOverloaded(err))
	assert.Equal(t, int64(10), RetryAfter(err))

	// Sub-second hints round up to one second
	assert.Equal(t, int64(1), RetryAfter(ErrOverloaded(100*time.Millisecond)))

	assert.False(t, IsOverloaded(errors.New("other")))
	assert.False(t, IsOverloaded(kerrors.New(429, ReasonRateLimitExceeded, "limited")))
	assert.Equal(t, int64(0), RetryAfter(nil))
}
