package biz

import (
	"context"
	"os"
	"sync"
	"time"

	"Itinera/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/mock"
)

// MockUpstream is a mock implementation of UpstreamClient for testing.
type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) Generate(ctx context.Context, prompt, systemInstruction string) (string, error) {
	args := m.Called(ctx, prompt, systemInstruction)
	return args.String(0), args.Error(1)
}

func (m *MockUpstream) Name() string { return "mock" }

// fakeCache is an in-memory ResultCache that records how it was used.
type fakeCache struct {
	mu       sync.Mutex
	entries  map[string]string
	ttls     map[string]time.Duration
	counters map[string]int64
	health   model.CacheHealth
	down     bool

	gets, sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:  make(map[string]string),
		ttls:     make(map[string]time.Duration),
		counters: make(map[string]int64),
		health:   model.CacheHealth{Status: model.CacheStatusHealthy, Backend: model.CacheBackendMemory},
	}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.down {
		return "", false
	}
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.down {
		return
	}
	c.entries[key] = value
	c.ttls[key] = ttl
}

func (c *fakeCache) Increment(_ context.Context, key string, _ time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return 0
	}
	c.counters[key]++
	return c.counters[key]
}

func (c *fakeCache) Health(context.Context) model.CacheHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

func (c *fakeCache) setHealth(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health.Status = status
}

func testLogger() log.Logger {
	return log.NewStdLogger(os.Stdout)
}

// goaRequest is a four-day trip used across the orchestration tests.
func goaRequest() *model.TripRequest {
	return &model.TripRequest{
		Destination: "Goa",
		StartDate:   "2026-03-01",
		EndDate:     "2026-03-05",
		Budget:      52000,
		Travelers:   2,
		Preferences: model.TripPreferences{FamilyFriendly: true, Adventure: true},
	}
}

const goaUpstreamJSON = `{
  "destination": "Goa",
  "duration_days": 4,
  "daily_plans": [
    {"day": 1, "date": "2026-03-01", "title": "Beaches of the north", "description": "Baga and Calangute",
     "activities": ["Parasailing", "Sunset at Fort Aguada"],
     "meals": [{"type": "lunch", "suggestion": "Fish thali", "cost": "₹600"}]}
  ],
  "estimated_cost": 48000,
  "hotels": [], "flights": [], "local_transport": [],
  "tips": ["Rent a scooter"],
  "packing_list": ["Sunscreen"]
}`
