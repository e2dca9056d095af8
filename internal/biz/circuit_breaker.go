package biz

import (
	"sync"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/model"
	pkglog "Itinera/pkg/log"
	"Itinera/pkg/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	// StateClosed lets calls through.
	StateClosed BreakerState = iota
	// StateOpen rejects calls until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of probe calls.
	StateHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker names used by the composition root and diagnostics.
const (
	BreakerUpstream = "upstream"
	BreakerStorage  = "storage"
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name              string
	FailureThreshold  uint32
	RecoveryTimeout   time.Duration
	MaxHalfOpenProbes uint32

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, from, to BreakerState)
}

// CircuitBreaker tracks failures of one external dependency.
//
// State machine:
//
//	CLOSED    --failures >= threshold-->      OPEN
//	OPEN      --recovery timeout elapsed-->   HALF_OPEN
//	HALF_OPEN --probe success-->              CLOSED
//	HALF_OPEN --probe failure-->              OPEN
//
// All operations are linearized by a single mutex.
type CircuitBreaker struct {
	mu sync.Mutex

	name              string
	failureThreshold  uint32
	recoveryTimeout   time.Duration
	maxHalfOpenProbes uint32

	state          BreakerState
	failureCount   uint64
	successCount   uint64
	lastFailure    time.Time
	halfOpenProbes uint32

	onStateChange func(name string, from, to BreakerState)
	now           func() time.Time
	logger        *pkglog.LogHelper
}

// NewCircuitBreaker creates a CLOSED breaker. Zero values fall back to a
// threshold of 1, no recovery delay and a single probe.
func NewCircuitBreaker(cfg BreakerConfig, logger log.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.MaxHalfOpenProbes == 0 {
		cfg.MaxHalfOpenProbes = 1
	}
	return &CircuitBreaker{
		name:              cfg.Name,
		failureThreshold:  cfg.FailureThreshold,
		recoveryTimeout:   cfg.RecoveryTimeout,
		maxHalfOpenProbes: cfg.MaxHalfOpenProbes,
		state:             StateClosed,
		onStateChange:     cfg.OnStateChange,
		now:               time.Now,
		logger:            pkglog.NewLogHelper(log.With(logger, "module", "biz/breaker", "breaker", cfg.Name)),
	}
}

// Name returns the dependency this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// CanExecute reports whether a call to the dependency may be attempted.
// In HALF_OPEN each true result consumes one probe.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	var transitions []transition

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) < cb.recoveryTimeout {
			cb.mu.Unlock()
			return false
		}
		transitions = append(transitions, cb.setState(StateHalfOpen))
		cb.halfOpenProbes = 0
	}

	allowed := true
	if cb.state == StateHalfOpen {
		allowed = cb.halfOpenProbes < cb.maxHalfOpenProbes
		if allowed {
			cb.halfOpenProbes++
		}
	}
	cb.mu.Unlock()

	cb.notify(transitions)
	return allowed
}

// RecordSuccess closes a HALF_OPEN breaker and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var transitions []transition

	if cb.state == StateHalfOpen {
		transitions = append(transitions, cb.setState(StateClosed))
	}
	cb.failureCount = 0
	cb.successCount++
	cb.mu.Unlock()

	cb.notify(transitions)
}

// RecordFailure counts a failure. A HALF_OPEN breaker reopens immediately;
// a CLOSED breaker opens once the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	var transitions []transition

	cb.failureCount++
	cb.lastFailure = cb.now()

	switch {
	case cb.state == StateHalfOpen:
		transitions = append(transitions, cb.setState(StateOpen))
	case cb.state == StateClosed && cb.failureCount >= uint64(cb.failureThreshold):
		transitions = append(transitions, cb.setState(StateOpen))
	}
	cb.mu.Unlock()

	cb.notify(transitions)
}

// Release returns a HALF_OPEN probe granted by CanExecute without recording
// an outcome. Used when the caller abandons the call before the dependency
// answered.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.halfOpenProbes > 0 {
		cb.halfOpenProbes--
	}
}

// State returns the current state without evaluating the recovery timeout.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot for diagnostics.
func (cb *CircuitBreaker) Stats() model.BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return model.BreakerStats{
		Name:                   cb.name,
		State:                  cb.state.String(),
		FailureCount:           cb.failureCount,
		SuccessCount:           cb.successCount,
		FailureThreshold:       cb.failureThreshold,
		RecoveryTimeoutSeconds: cb.recoveryTimeout.Seconds(),
	}
}

type transition struct {
	from, to BreakerState
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to BreakerState) transition {
	t := transition{from: cb.state, to: to}
	cb.state = to
	return t
}

func (cb *CircuitBreaker) notify(transitions []transition) {
	for _, t := range transitions {
		if t.to == StateOpen {
			cb.logger.Breaker("circuit breaker opened",
				"from", t.from.String(),
				"recovery_timeout", cb.recoveryTimeout.String())
		} else {
			cb.logger.Infow("msg", "circuit breaker state changed",
				"from", t.from.String(),
				"to", t.to.String())
		}
		if cb.onStateChange != nil {
			cb.onStateChange(cb.name, t.from, t.to)
		}
	}
}

// Breakers holds the process-wide breaker for each external dependency.
type Breakers struct {
	Upstream *CircuitBreaker
	Storage  *CircuitBreaker
}

// All returns every configured breaker keyed by name.
func (b *Breakers) All() map[string]*CircuitBreaker {
	return map[string]*CircuitBreaker{
		b.Upstream.Name(): b.Upstream,
		b.Storage.Name():  b.Storage,
	}
}

// NewBreakers builds the upstream and storage breakers from configuration
// and reports their transitions to metrics.
func NewBreakers(c *conf.Resilience, m *metrics.Metrics, logger log.Logger) *Breakers {
	upstream := breakerConfig(BreakerUpstream, c.GetUpstreamBreaker(), 5, 60*time.Second)
	storage := breakerConfig(BreakerStorage, c.GetStorageBreaker(), 3, 30*time.Second)

	onChange := func(name string, from, to BreakerState) {
		m.BreakerTransition(name, from.String(), to.String(), int(to))
	}
	upstream.OnStateChange = onChange
	storage.OnStateChange = onChange

	b := &Breakers{
		Upstream: NewCircuitBreaker(upstream, logger),
		Storage:  NewCircuitBreaker(storage, logger),
	}
	m.SetBreakerState(BreakerUpstream, int(StateClosed))
	m.SetBreakerState(BreakerStorage, int(StateClosed))
	return b
}

func breakerConfig(name string, c *conf.Resilience_Breaker, threshold uint32, recovery time.Duration) BreakerConfig {
	cfg := BreakerConfig{
		Name:              name,
		FailureThreshold:  threshold,
		RecoveryTimeout:   recovery,
		MaxHalfOpenProbes: 1,
	}
	if c == nil {
		return cfg
	}
	if c.FailureThreshold > 0 {
		cfg.FailureThreshold = c.FailureThreshold
	}
	if c.RecoveryTimeout > 0 {
		cfg.RecoveryTimeout = c.RecoveryTimeout
	}
	if c.MaxHalfOpenProbes > 0 {
		cfg.MaxHalfOpenProbes = c.MaxHalfOpenProbes
	}
	return cfg
}
