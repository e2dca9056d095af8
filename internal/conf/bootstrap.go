// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with ITINERA_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Nothing is strictly required: with zero configuration the service runs with
// the stub upstream and caching disabled.
//
// Compatibility environment variables:
//   - AI_PROVIDER, AI_MODEL: upstream backend selection
//   - GOOGLE_API_KEY, OPENAI_API_KEY: vendor credentials
//   - OLLAMA_BASE_URL: self-hosted base URL
//   - REDIS_URL: cache connection string
//   - AI_CONCURRENCY_LIMIT: admission gate capacity
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ITINERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("upstream.provider", "AI_PROVIDER", "ITINERA_UPSTREAM_PROVIDER")
	_ = v.BindEnv("upstream.model", "AI_MODEL", "ITINERA_UPSTREAM_MODEL")
	_ = v.BindEnv("upstream.base_url", "OLLAMA_BASE_URL", "ITINERA_UPSTREAM_BASE_URL")
	_ = v.BindEnv("upstream.gemini.api_key", "GOOGLE_API_KEY", "ITINERA_UPSTREAM_GEMINI_API_KEY")
	_ = v.BindEnv("upstream.openai.api_key", "OPENAI_API_KEY", "ITINERA_UPSTREAM_OPENAI_API_KEY")
	_ = v.BindEnv("data.cache.url", "REDIS_URL", "ITINERA_DATA_CACHE_URL")
	_ = v.BindEnv("resilience.admission.capacity", "AI_CONCURRENCY_LIMIT", "ITINERA_RESILIENCE_ADMISSION_CAPACITY")
	_ = v.BindEnv("log.level", "LOG_LEVEL", "ITINERA_LOG_LEVEL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Cache: &Data_Cache{
				URL:          v.GetString("data.cache.url"),
				DialTimeout:  v.GetDuration("data.cache.dial_timeout"),
				ReadTimeout:  v.GetDuration("data.cache.read_timeout"),
				WriteTimeout: v.GetDuration("data.cache.write_timeout"),
				DefaultTTL:   v.GetDuration("data.cache.default_ttl"),
				MemorySize:   v.GetInt("data.cache.memory_size"),
			},
		},
		Upstream: &Upstream{
			Provider: v.GetString("upstream.provider"),
			Model:    v.GetString("upstream.model"),
			BaseURL:  v.GetString("upstream.base_url"),
			ProxyURL: v.GetString("upstream.proxy_url"),
			Timeout:  v.GetDuration("upstream.timeout"),
			Gemini: &Upstream_Credential{
				ApiKey:  v.GetString("upstream.gemini.api_key"),
				BaseURL: v.GetString("upstream.gemini.base_url"),
			},
			Openai: &Upstream_Credential{
				ApiKey:  v.GetString("upstream.openai.api_key"),
				BaseURL: v.GetString("upstream.openai.base_url"),
			},
		},
		Resilience: &Resilience{
			Admission: &Resilience_Admission{
				Capacity:       v.GetInt64("resilience.admission.capacity"),
				AcquireTimeout: v.GetDuration("resilience.admission.acquire_timeout"),
				RetryAfter:     v.GetDuration("resilience.admission.retry_after"),
			},
			UpstreamBreaker: &Resilience_Breaker{
				FailureThreshold:  v.GetUint32("resilience.upstream_breaker.failure_threshold"),
				RecoveryTimeout:   v.GetDuration("resilience.upstream_breaker.recovery_timeout"),
				MaxHalfOpenProbes: v.GetUint32("resilience.upstream_breaker.max_half_open_probes"),
			},
			StorageBreaker: &Resilience_Breaker{
				FailureThreshold:  v.GetUint32("resilience.storage_breaker.failure_threshold"),
				RecoveryTimeout:   v.GetDuration("resilience.storage_breaker.recovery_timeout"),
				MaxHalfOpenProbes: v.GetUint32("resilience.storage_breaker.max_half_open_probes"),
			},
			ResultTTL: v.GetDuration("resilience.result_ttl"),
			RateLimit: &Resilience_RateLimit{
				RequestsPerWindow: v.GetInt64("resilience.rate_limit.requests_per_window"),
				Window:            v.GetDuration("resilience.rate_limit.window"),
			},
			StorageProbe: &Resilience_StorageProbe{
				Cron: v.GetString("resilience.storage_probe.cron"),
			},
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8000")
	// Must outlive the upstream timeout plus the admission wait.
	v.SetDefault("server.http.timeout", 150*time.Second)

	// data.cache.url is empty by default: caching disabled
	v.SetDefault("data.cache.dial_timeout", 5*time.Second)
	v.SetDefault("data.cache.read_timeout", 3*time.Second)
	v.SetDefault("data.cache.write_timeout", 3*time.Second)
	v.SetDefault("data.cache.default_ttl", time.Hour)
	v.SetDefault("data.cache.memory_size", 1024)

	// upstream.provider is empty by default: stub backend
	v.SetDefault("upstream.timeout", 120*time.Second)

	v.SetDefault("resilience.admission.capacity", 10)
	v.SetDefault("resilience.admission.acquire_timeout", 10*time.Second)
	v.SetDefault("resilience.admission.retry_after", 10*time.Second)

	v.SetDefault("resilience.upstream_breaker.failure_threshold", 5)
	v.SetDefault("resilience.upstream_breaker.recovery_timeout", 60*time.Second)
	v.SetDefault("resilience.upstream_breaker.max_half_open_probes", 1)

	// Storage opens faster and recovers faster.
	v.SetDefault("resilience.storage_breaker.failure_threshold", 3)
	v.SetDefault("resilience.storage_breaker.recovery_timeout", 30*time.Second)
	v.SetDefault("resilience.storage_breaker.max_half_open_probes", 1)

	v.SetDefault("resilience.result_ttl", time.Hour)
	v.SetDefault("resilience.rate_limit.requests_per_window", 30)
	v.SetDefault("resilience.rate_limit.window", time.Minute)
	v.SetDefault("resilience.storage_probe.cron", "*/30 * * * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks structural constraints on the loaded configuration.
// An unrecognized upstream provider is deliberately not an error here: it is
// resolved to the stub backend when the client is built.
func Validate(bc *Bootstrap) error {
	var problems []string

	if bc.Resilience == nil || bc.Resilience.Admission == nil || bc.Resilience.Admission.Capacity < 1 {
		problems = append(problems, "resilience.admission.capacity must be >= 1 (AI_CONCURRENCY_LIMIT)")
	}
	if bc.Resilience != nil && bc.Resilience.Admission != nil && bc.Resilience.Admission.AcquireTimeout <= 0 {
		problems = append(problems, "resilience.admission.acquire_timeout must be positive")
	}
	if bc.Resilience != nil {
		for name, b := range map[string]*Resilience_Breaker{
			"upstream_breaker": bc.Resilience.UpstreamBreaker,
			"storage_breaker":  bc.Resilience.StorageBreaker,
		} {
			if b == nil || b.FailureThreshold < 1 {
				problems = append(problems, fmt.Sprintf("resilience.%s.failure_threshold must be >= 1", name))
			}
		}
		if bc.Resilience.RateLimit != nil && bc.Resilience.RateLimit.RequestsPerWindow < 0 {
			problems = append(problems, "resilience.rate_limit.requests_per_window must not be negative")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}

	return nil
}
