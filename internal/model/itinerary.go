// Package model holds types shared by the data, biz and service layers.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by trip requests.
const DateLayout = "2006-01-02"

// TripPreferences are the boolean traveller preferences that feed both the
// prompt and the cache fingerprint.
type TripPreferences struct {
	Adventure       bool `json:"adventure"`
	FamilyFriendly  bool `json:"family_friendly"`
	Vegetarian      bool `json:"vegetarian"`
	BudgetConscious bool `json:"budget_conscious"`
	Luxury          bool `json:"luxury"`
}

// Flags returns the preferences keyed by their wire names.
func (p TripPreferences) Flags() map[string]bool {
	return map[string]bool{
		"adventure":        p.Adventure,
		"family_friendly":  p.FamilyFriendly,
		"vegetarian":       p.Vegetarian,
		"budget_conscious": p.BudgetConscious,
		"luxury":           p.Luxury,
	}
}

// TripRequest is an already-validated itinerary generation request.
type TripRequest struct {
	Destination string          `json:"destination"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Budget      float64         `json:"budget"`
	Travelers   int             `json:"travelers"`
	Preferences TripPreferences `json:"preferences"`
}

// Days returns the number of nights between StartDate and EndDate.
func (r *TripRequest) Days() (int, error) {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return 0, fmt.Errorf("invalid start_date %q: %w", r.StartDate, err)
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return 0, fmt.Errorf("invalid end_date %q: %w", r.EndDate, err)
	}
	return int(end.Sub(start).Hours() / 24), nil
}

// Meal is one meal suggestion within a day plan.
type Meal struct {
	Type       string `json:"type"`
	Suggestion string `json:"suggestion"`
	Cost       string `json:"cost"`
}

// Accommodation is the stay suggested for one night.
type Accommodation struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Cost string `json:"cost"`
}

// DayPlan is the plan for a single day of the trip.
type DayPlan struct {
	Day           int            `json:"day"`
	Date          string         `json:"date"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Activities    []string       `json:"activities"`
	Meals         []Meal         `json:"meals"`
	Accommodation *Accommodation `json:"accommodation,omitempty"`
}

// Hotel is a hotel recommendation.
type Hotel struct {
	Name          string   `json:"name"`
	Rating        float64  `json:"rating"`
	PricePerNight float64  `json:"price_per_night"`
	Amenities     []string `json:"amenities"`
	Location      string   `json:"location"`
}

// Flight is a flight suggestion.
type Flight struct {
	Airline   string  `json:"airline"`
	Route     string  `json:"route"`
	Price     float64 `json:"price"`
	Duration  string  `json:"duration"`
	Departure string  `json:"departure"`
	Arrival   string  `json:"arrival"`
}

// Transport is a local transport option.
type Transport struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}

// Itinerary is the generated travel plan.
type Itinerary struct {
	Destination    string      `json:"destination"`
	DurationDays   int         `json:"duration_days"`
	DailyPlans     []DayPlan   `json:"daily_plans"`
	EstimatedCost  float64     `json:"estimated_cost"`
	Hotels         []Hotel     `json:"hotels"`
	Flights        []Flight    `json:"flights"`
	LocalTransport []Transport `json:"local_transport"`
	Tips           []string    `json:"tips"`
	WeatherInfo    string      `json:"weather_info,omitempty"`
	PackingList    []string    `json:"packing_list"`
}

// Usable reports whether the itinerary carries enough content to be served.
func (i *Itinerary) Usable() bool {
	return i != nil && i.Destination != "" && len(i.DailyPlans) > 0
}

// ResultSource tells the caller which path produced an itinerary.
type ResultSource string

const (
	SourceCache    ResultSource = "cache"
	SourceUpstream ResultSource = "upstream"
	SourceFallback ResultSource = "fallback"
)

// GenerateResult is what the orchestrator hands back to its caller.
type GenerateResult struct {
	Itinerary *Itinerary   `json:"itinerary"`
	Source    ResultSource `json:"source"`
	CacheKey  string       `json:"cache_key"`
}
