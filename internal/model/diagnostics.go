package model

// Cache health states.
const (
	CacheStatusHealthy      = "healthy"
	CacheStatusUnhealthy    = "unhealthy"
	CacheStatusDisconnected = "disconnected"
)

// Cache backend names.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// CacheHealth is a read-only snapshot of the result cache.
type CacheHealth struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Detail  string `json:"detail,omitempty"`
}

// BreakerStats is a read-only snapshot of one circuit breaker.
type BreakerStats struct {
	Name                   string  `json:"name"`
	State                  string  `json:"state"`
	FailureCount           uint64  `json:"failure_count"`
	SuccessCount           uint64  `json:"success_count"`
	FailureThreshold       uint32  `json:"failure_threshold"`
	RecoveryTimeoutSeconds float64 `json:"recovery_timeout_seconds"`
}

// AdmissionStats is a read-only snapshot of the admission gate.
type AdmissionStats struct {
	Capacity  int64 `json:"limit"`
	Available int64 `json:"available"`
	InFlight  int64 `json:"in_flight"`
}

// Diagnostics aggregates everything the health endpoint reports.
type Diagnostics struct {
	Status    string                  `json:"status"`
	Upstream  string                  `json:"upstream"`
	Cache     CacheHealth             `json:"cache"`
	Breakers  map[string]BreakerStats `json:"circuit_breakers"`
	Admission AdmissionStats          `json:"ai_concurrency"`
}
