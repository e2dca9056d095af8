// Package biz contains business logic layer implementations.
// This layer holds the resilience rules around itinerary generation.
package biz

import (
	"context"
	"time"

	"Itinera/internal/data"
	"Itinera/internal/model"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBreakers,
	NewAdmissionGate,
	NewItineraryUsecase,
	NewRateLimiterUseCase,
	NewStorageProbe,
	NewHealthUsecase,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(ResultCache), new(*data.ResultCache)),
)

// UpstreamClient generates text from a prompt. Implementations live in
// pkg/llm; one is selected at startup and held for the process lifetime.
type UpstreamClient interface {
	Generate(ctx context.Context, prompt, systemInstruction string) (string, error)
	Name() string
}

// ResultCache is the degrade-safe cache the biz layer depends on.
// None of its operations report errors: failures read as misses, no-ops
// and zero counts.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Increment(ctx context.Context, key string, ttl time.Duration) int64
	Health(ctx context.Context) model.CacheHealth
}
