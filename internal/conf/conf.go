package conf

import "time"

// Bootstrap is the root configuration loaded by NewBootstrap.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	Upstream   *Upstream
	Resilience *Resilience
	Log        *Log
}

// Server holds transport settings.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP configures the Kratos HTTP server.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds backing store settings.
type Data struct {
	Cache *Data_Cache
}

// Data_Cache configures the result cache.
// An empty URL disables caching without failing startup.
type Data_Cache struct {
	// URL selects the backend: redis://, rediss:// or memory://
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DefaultTTL   time.Duration
	// MemorySize bounds the number of entries held by the memory backend.
	MemorySize int
}

// Upstream selects and configures the AI generation backend.
type Upstream struct {
	// Provider is one of gemini, openai, ollama, fallback.
	Provider string
	Model    string
	BaseURL  string
	ProxyURL string
	Timeout  time.Duration
	Gemini   *Upstream_Credential
	Openai   *Upstream_Credential
}

// Upstream_Credential carries per-vendor credentials.
type Upstream_Credential struct {
	ApiKey  string
	BaseURL string
}

// Resilience configures the breakers, admission gate and related limits.
type Resilience struct {
	Admission       *Resilience_Admission
	UpstreamBreaker *Resilience_Breaker
	StorageBreaker  *Resilience_Breaker
	ResultTTL       time.Duration
	RateLimit       *Resilience_RateLimit
	StorageProbe    *Resilience_StorageProbe
}

// Resilience_Admission configures the admission gate.
type Resilience_Admission struct {
	Capacity       int64
	AcquireTimeout time.Duration
	RetryAfter     time.Duration
}

// Resilience_Breaker configures one circuit breaker.
type Resilience_Breaker struct {
	FailureThreshold  uint32
	RecoveryTimeout   time.Duration
	MaxHalfOpenProbes uint32
}

// Resilience_RateLimit configures per-client request counting.
// A zero RequestsPerWindow disables the limiter.
type Resilience_RateLimit struct {
	RequestsPerWindow int64
	Window            time.Duration
}

// Resilience_StorageProbe configures the periodic cache probe.
type Resilience_StorageProbe struct {
	// Cron is a six-field (with seconds) cron schedule. Empty disables the job.
	Cron string
}

// Log configures zap.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// GetAdmission returns the admission settings; nil-safe.
func (r *Resilience) GetAdmission() *Resilience_Admission {
	if r == nil {
		return nil
	}
	return r.Admission
}

// GetUpstreamBreaker returns the upstream breaker settings; nil-safe.
func (r *Resilience) GetUpstreamBreaker() *Resilience_Breaker {
	if r == nil {
		return nil
	}
	return r.UpstreamBreaker
}

// GetStorageBreaker returns the storage breaker settings; nil-safe.
func (r *Resilience) GetStorageBreaker() *Resilience_Breaker {
	if r == nil {
		return nil
	}
	return r.StorageBreaker
}

// GetRateLimit returns the rate limit settings; nil-safe.
func (r *Resilience) GetRateLimit() *Resilience_RateLimit {
	if r == nil {
		return nil
	}
	return r.RateLimit
}

// GetStorageProbe returns the storage probe settings; nil-safe.
func (r *Resilience) GetStorageProbe() *Resilience_StorageProbe {
	if r == nil {
		return nil
	}
	return r.StorageProbe
}

// GetResultTTL returns the TTL for cached results; nil-safe.
func (r *Resilience) GetResultTTL() time.Duration {
	if r == nil {
		return 0
	}
	return r.ResultTTL
}
