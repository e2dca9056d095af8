package biz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"Itinera/internal/model"
)

// systemInstruction is sent to every upstream alongside the prompt.
const systemInstruction = `You are an expert travel planner AI. Generate detailed, personalized travel itineraries based on user preferences.
Always respond with valid JSON in the exact format specified. Include realistic prices, activities, and recommendations.`

// ErrUnusableOutput is returned when upstream text decodes but lacks the
// content needed to serve an itinerary.
var ErrUnusableOutput = errors.New("upstream output has no usable itinerary")

var preferenceText = []struct {
	flag func(model.TripPreferences) bool
	text string
}{
	{func(p model.TripPreferences) bool { return p.Adventure }, "adventure activities"},
	{func(p model.TripPreferences) bool { return p.FamilyFriendly }, "family-friendly"},
	{func(p model.TripPreferences) bool { return p.Vegetarian }, "vegetarian food options"},
	{func(p model.TripPreferences) bool { return p.BudgetConscious }, "budget-conscious"},
	{func(p model.TripPreferences) bool { return p.Luxury }, "luxury experiences"},
}

// buildPrompt renders the generation prompt for a request of the given length.
func buildPrompt(req *model.TripRequest, days int) string {
	var prefs []string
	for _, p := range preferenceText {
		if p.flag(req.Preferences) {
			prefs = append(prefs, p.text)
		}
	}
	preferences := "general tourist activities"
	if len(prefs) > 0 {
		preferences = strings.Join(prefs, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed %d-day travel itinerary for %s.\n\n", days, req.Destination)
	b.WriteString("Trip Details:\n")
	fmt.Fprintf(&b, "- Destination: %s\n", req.Destination)
	fmt.Fprintf(&b, "- Dates: %s to %s\n", req.StartDate, req.EndDate)
	fmt.Fprintf(&b, "- Number of travelers: %d\n", req.Travelers)
	fmt.Fprintf(&b, "- Total budget: ₹%.0f\n", req.Budget)
	fmt.Fprintf(&b, "- Preferences: %s\n\n", preferences)
	b.WriteString("Provide a comprehensive JSON response with the following structure:\n")
	fmt.Fprintf(&b, promptSchema, req.Destination, days, req.StartDate)
	b.WriteString("\n\nIMPORTANT: Respond ONLY with valid JSON. No markdown, no code blocks, just pure JSON.")

	return b.String()
}

const promptSchema = `{
  "destination": %q,
  "duration_days": %d,
  "daily_plans": [
    {
      "day": 1,
      "date": %q,
      "title": "Day title",
      "description": "What to expect this day",
      "activities": ["Activity 1", "Activity 2", "Activity 3"],
      "meals": [
        {"type": "breakfast", "suggestion": "Restaurant name and dish", "cost": "₹500"},
        {"type": "lunch", "suggestion": "Restaurant name", "cost": "₹800"},
        {"type": "dinner", "suggestion": "Restaurant name", "cost": "₹1000"}
      ],
      "accommodation": {"name": "Hotel name", "type": "Hotel", "cost": "₹3000"}
    }
  ],
  "estimated_cost": 50000,
  "hotels": [
    {"name": "Hotel name", "rating": 4.5, "price_per_night": 5000, "amenities": ["Pool", "Spa"], "location": "City Center"}
  ],
  "flights": [
    {"airline": "Airline", "route": "Origin to Nearest Airport", "price": 4500, "duration": "2h", "departure": "08:00", "arrival": "10:00"}
  ],
  "local_transport": [
    {"type": "Taxi", "description": "Airport to Hotel", "cost": 1200}
  ],
  "tips": ["Tip 1", "Tip 2", "Tip 3"],
  "weather_info": "Expected weather during travel dates",
  "packing_list": ["Item 1", "Item 2", "Item 3"]
}`

// parseItinerary decodes upstream text, tolerating a surrounding markdown
// code fence.
func parseItinerary(raw string) (*model.Itinerary, error) {
	text := strings.TrimSpace(raw)
	if t, ok := strings.CutPrefix(text, "```json"); ok {
		text = t
	} else if t, ok := strings.CutPrefix(text, "```"); ok {
		text = t
	}
	text = strings.TrimSpace(strings.TrimSuffix(text, "```"))

	var it model.Itinerary
	if err := json.Unmarshal([]byte(text), &it); err != nil {
		return nil, fmt.Errorf("failed to decode upstream output: %w", err)
	}
	if !it.Usable() {
		return nil, ErrUnusableOutput
	}
	return &it, nil
}
