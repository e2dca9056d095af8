package biz

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/data"
	"Itinera/internal/model"

	"github.com/alicebob/miniredis/v2"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type usecaseFixture struct {
	uc       *ItineraryUsecase
	cache    *fakeCache
	upstream *MockUpstream
	breakers *Breakers
	gate     *AdmissionGate
}

func newUsecaseFixture(capacity int64, threshold uint32) *usecaseFixture {
	res := &conf.Resilience{
		Admission: &conf.Resilience_Admission{
			Capacity:       capacity,
			AcquireTimeout: 50 * time.Millisecond,
			RetryAfter:     10 * time.Second,
		},
		UpstreamBreaker: &conf.Resilience_Breaker{
			FailureThreshold: threshold,
			RecoveryTimeout:  60 * time.Second,
		},
		ResultTTL: time.Hour,
	}

	f := &usecaseFixture{
		cache:    newFakeCache(),
		upstream: new(MockUpstream),
	}
	f.breakers = NewBreakers(res, nil, testLogger())
	f.gate = NewAdmissionGate(res, nil, testLogger())
	f.uc = NewItineraryUsecase(f.cache, f.gate, f.breakers, f.upstream, res, nil, testLogger())
	return f
}

func TestGenerate_UpstreamSuccessIsCached(t *testing.T) {
	f := newUsecaseFixture(2, 5)
	f.upstream.On("Generate", mock.Anything, mock.Anything, systemInstruction).Return(goaUpstreamJSON, nil).Once()

	res, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)

	assert.Equal(t, model.SourceUpstream, res.Source)
	assert.Equal(t, "Goa", res.Itinerary.Destination)
	assert.Equal(t, "Beaches of the north", res.Itinerary.DailyPlans[0].Title)

	raw, ok := f.cache.entries[res.CacheKey]
	require.True(t, ok, "successful result must be cached")
	assert.Equal(t, time.Hour, f.cache.ttls[res.CacheKey])

	var cached model.Itinerary
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, res.Itinerary.Destination, cached.Destination)

	assert.Equal(t, uint64(1), f.breakers.Upstream.Stats().SuccessCount)
	assert.Equal(t, int64(0), f.gate.InFlight())
	f.upstream.AssertExpectations(t)
}

func TestGenerate_PromptCarriesRequest(t *testing.T) {
	f := newUsecaseFixture(1, 5)

	var prompt string
	f.upstream.On("Generate", mock.Anything, mock.Anything, systemInstruction).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return(goaUpstreamJSON, nil)

	_, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)

	assert.Contains(t, prompt, "4-day travel itinerary for Goa")
	assert.Contains(t, prompt, "Number of travelers: 2")
	assert.Contains(t, prompt, "adventure activities, family-friendly")
}

func TestGenerate_CacheHitBypassesGateBreakerAndUpstream(t *testing.T) {
	f := newUsecaseFixture(1, 1)

	// Populate through a real upstream success
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Once()
	first, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	require.Equal(t, model.SourceUpstream, first.Source)

	// Saturate the gate and open the breaker: a cache hit must not notice
	release := hold(t, f.gate, 1)
	defer release()
	f.breakers.Upstream.RecordFailure()
	require.Equal(t, StateOpen, f.breakers.Upstream.State())
	statsBefore := f.breakers.Upstream.Stats()

	equivalent := &model.TripRequest{
		Destination: "  goa ",
		StartDate:   "2026-03-01",
		EndDate:     "2026-03-05",
		Budget:      54999,
		Travelers:   4,
		Preferences: model.TripPreferences{Adventure: true, FamilyFriendly: true},
	}
	res, err := f.uc.Generate(context.Background(), equivalent)
	require.NoError(t, err)

	assert.Equal(t, model.SourceCache, res.Source)
	assert.Equal(t, first.CacheKey, res.CacheKey)
	assert.Equal(t, "Beaches of the north", res.Itinerary.DailyPlans[0].Title)
	assert.Equal(t, statsBefore, f.breakers.Upstream.Stats(), "breaker untouched")
	f.upstream.AssertNumberOfCalls(t, "Generate", 1)
}

func TestGenerate_BreakerOpensThenFallbackWithoutCall(t *testing.T) {
	// capacity=1 gate, threshold=1 breaker
	f := newUsecaseFixture(1, 1)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("upstream 503")).Once()

	first, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err, "upstream failure is never propagated")
	assert.Equal(t, model.SourceFallback, first.Source)
	assert.True(t, first.Itinerary.Usable())
	assert.Equal(t, StateOpen, f.breakers.Upstream.State())
	assert.Equal(t, int64(0), f.gate.InFlight(), "slot released after failure")

	second, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, second.Source)
	assert.True(t, second.Itinerary.Usable())
	assert.Equal(t, int64(0), f.gate.InFlight(), "slot released after breaker-open fallback")

	f.upstream.AssertNumberOfCalls(t, "Generate", 1)
	assert.Empty(t, f.cache.entries, "fallback results are not cached")
}

func TestGenerate_FallbackMatchesForBreakerOpenAndFailure(t *testing.T) {
	f := newUsecaseFixture(1, 1)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()

	failed, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	open, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)

	assert.Equal(t, failed, open)
}

func TestGenerate_UnusableOutputFallsBackWithoutCaching(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"stub empty object", "{}"},
		{"not json", "Sorry, I cannot help with that"},
		{"missing plans", `{"destination": "Goa", "daily_plans": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUsecaseFixture(1, 1)
			f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(tt.raw, nil)

			res, err := f.uc.Generate(context.Background(), goaRequest())
			require.NoError(t, err)

			assert.Equal(t, model.SourceFallback, res.Source)
			assert.Empty(t, f.cache.entries)
			// The upstream answered, so the breaker counts a success
			assert.Equal(t, StateClosed, f.breakers.Upstream.State())
			assert.Equal(t, uint64(1), f.breakers.Upstream.Stats().SuccessCount)
		})
	}
}

func TestGenerate_FencedOutputIsAccepted(t *testing.T) {
	f := newUsecaseFixture(1, 1)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("```json\n"+goaUpstreamJSON+"\n```", nil)

	res, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceUpstream, res.Source)
}

func TestGenerate_Overloaded(t *testing.T) {
	f := newUsecaseFixture(1, 5)
	release := hold(t, f.gate, 1)
	defer release()

	res, err := f.uc.Generate(context.Background(), goaRequest())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsOverloaded(err))
	assert.Equal(t, int64(10), RetryAfter(err))

	f.upstream.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, StateClosed, f.breakers.Upstream.State(), "overload is not an upstream failure")
}

func TestGenerate_UpstreamPanicIsRecordedAndReleased(t *testing.T) {
	f := newUsecaseFixture(1, 1)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("adapter bug") }).
		Return("", nil)

	res, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, res.Source)
	assert.Equal(t, StateOpen, f.breakers.Upstream.State())
	assert.Equal(t, int64(0), f.gate.InFlight())
}

// blockUntilDone makes the mocked upstream wait for the caller's context.
func blockUntilDone(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}

func TestGenerate_CallerCancellationIsNotAnUpstreamFailure(t *testing.T) {
	f := newUsecaseFixture(1, 3)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(blockUntilDone).
		Return("", context.DeadlineExceeded).Times(3)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		res, err := f.uc.Generate(ctx, goaRequest())
		cancel()
		require.NoError(t, err)
		assert.Equal(t, model.SourceFallback, res.Source)
	}

	assert.Equal(t, StateClosed, f.breakers.Upstream.State())
	assert.Equal(t, uint64(0), f.breakers.Upstream.Stats().FailureCount)
	assert.Equal(t, int64(0), f.gate.InFlight())
	assert.Equal(t, 0, f.cache.sets)
	f.upstream.AssertExpectations(t)
}

func TestGenerate_CancelledHalfOpenCallReleasesTrial(t *testing.T) {
	f := newUsecaseFixture(1, 1)
	now := time.Now()
	f.breakers.Upstream.now = func() time.Time { return now }

	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down")).Once()
	_, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	require.Equal(t, StateOpen, f.breakers.Upstream.State())

	now = now.Add(60 * time.Second)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(blockUntilDone).
		Return("", context.Canceled).Once()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res, err := f.uc.Generate(ctx, goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, res.Source)
	assert.Equal(t, StateHalfOpen, f.breakers.Upstream.State())

	// The next caller gets the trial and closes the breaker.
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Once()
	res, err = f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceUpstream, res.Source)
	assert.Equal(t, StateClosed, f.breakers.Upstream.State())
}

func TestGenerate_HalfOpenProbe(t *testing.T) {
	f := newUsecaseFixture(2, 1)
	now := time.Now()
	f.breakers.Upstream.now = func() time.Time { return now }

	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down")).Once()
	_, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	require.Equal(t, StateOpen, f.breakers.Upstream.State())

	now = now.Add(60 * time.Second)
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Once()

	res, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceUpstream, res.Source)
	assert.Equal(t, StateClosed, f.breakers.Upstream.State())
}

func TestGenerate_UnreadableCacheEntryIsAMiss(t *testing.T) {
	f := newUsecaseFixture(1, 5)
	key := data.MakeFingerprintKey("Goa", 4, 52000, goaRequest().Preferences.Flags())
	f.cache.entries[key] = "not-json"

	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Once()

	res, err := f.uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceUpstream, res.Source)
	assert.NotEqual(t, "not-json", f.cache.entries[key], "entry overwritten by fresh result")
}

func TestGenerate_CacheDownStillServes(t *testing.T) {
	f := newUsecaseFixture(1, 5)
	f.cache.down = true
	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Twice()

	for i := 0; i < 2; i++ {
		res, err := f.uc.Generate(context.Background(), goaRequest())
		require.NoError(t, err)
		assert.Equal(t, model.SourceUpstream, res.Source)
	}
	f.upstream.AssertExpectations(t)
}

func TestGenerate_InvalidDates(t *testing.T) {
	f := newUsecaseFixture(1, 5)
	req := goaRequest()
	req.StartDate = "01/03/2026"

	_, err := f.uc.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 400, int(kerrors.Code(err)))
}

func TestGenerate_ConcurrentRequestsShareGate(t *testing.T) {
	f := newUsecaseFixture(3, 100)
	f.gate.timeout = 5 * time.Second

	f.upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			assert.LessOrEqual(t, f.gate.InFlight(), int64(3))
			time.Sleep(5 * time.Millisecond)
		}).
		Return("", errors.New("slow failure"))

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.uc.Generate(context.Background(), goaRequest())
			assert.NoError(t, err)
			assert.Equal(t, model.SourceFallback, res.Source)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), f.gate.InFlight())
	assert.Equal(t, uint64(12), f.breakers.Upstream.Stats().FailureCount)
}

func TestGenerate_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, cleanup, err := data.NewResultCache(&conf.Data{
		Cache: &conf.Data_Cache{URL: "redis://" + mr.Addr() + "/0"},
	}, testLogger())
	require.NoError(t, err)
	defer cleanup()

	res := &conf.Resilience{ResultTTL: 3600 * time.Second}
	upstream := new(MockUpstream)
	upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Once()

	uc := NewItineraryUsecase(cache, NewAdmissionGate(res, nil, testLogger()), NewBreakers(res, nil, testLogger()), upstream, res, nil, testLogger())

	first, err := uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceUpstream, first.Source)
	assert.Equal(t, time.Hour, mr.TTL(first.CacheKey))

	second, err := uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceCache, second.Source)
	upstream.AssertNumberOfCalls(t, "Generate", 1)

	// Store goes away: generation still succeeds through the upstream
	mr.Close()
	upstream.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(goaUpstreamJSON, nil).Once()
	third, err := uc.Generate(context.Background(), goaRequest())
	require.NoError(t, err)
	assert.Equal(t, model.SourceUpstream, third.Source)
}
