package data

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// CacheKeyItinerary is the namespace for generated itinerary entries.
const CacheKeyItinerary = "itinerary"

// budgetBand is the width of the budget buckets used by fingerprints.
const budgetBand = 10000

// fingerprint is serialized with a fixed field order.
type fingerprint struct {
	BudgetRange int64    `json:"budget_range"`
	Days        int      `json:"days"`
	Dest        string   `json:"dest"`
	Prefs       []string `json:"prefs"`
}

// MakeFingerprintKey derives the cache key for an itinerary request so that
// near-identical requests share an entry:
//   - the subject is lower-cased and trimmed
//   - the amount is rounded to the nearest 10,000 band (half to even)
//   - only flags set to true count, in sorted order
//
// It is pure and does not depend on whether the store is reachable.
func MakeFingerprintKey(subject string, days int, amount float64, flags map[string]bool) string {
	prefs := make([]string, 0, len(flags))
	for name, on := range flags {
		if on {
			prefs = append(prefs, name)
		}
	}
	sort.Strings(prefs)

	fp := fingerprint{
		BudgetRange: int64(math.RoundToEven(amount/budgetBand)) * budgetBand,
		Days:        days,
		Dest:        strings.ToLower(strings.TrimSpace(subject)),
		Prefs:       prefs,
	}

	// Marshalling a struct of plain fields cannot fail.
	raw, _ := json.Marshal(fp)
	sum := md5.Sum(raw)

	return BuildCacheKey(CacheKeyItinerary, hex.EncodeToString(sum[:])[:12])
}

// BuildCacheKey constructs a cache key with the appropriate prefix.
// Examples:
//   - BuildCacheKey(CacheKeyItinerary, "3f2a...") -> "itinerary:3f2a..."
//   - BuildCacheKey(CacheKeyRate, "client-1", "29140211") -> "rate:client-1:29140211"
func BuildCacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// CacheKeyRate is the namespace for rate limit counters.
const CacheKeyRate = "rate"
