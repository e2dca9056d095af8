package biz

import (
	"fmt"
	"time"

	"Itinera/internal/model"
)

// fallbackItinerary synthesizes a deterministic placeholder plan without
// any network call. It always has at least one day.
func fallbackItinerary(req *model.TripRequest, days int) *model.Itinerary {
	if days < 1 {
		days = 1
	}
	start, err := time.Parse(model.DateLayout, req.StartDate)
	if err != nil {
		start = time.Time{}
	}
	dest := req.Destination

	plans := make([]model.DayPlan, 0, days)
	for i := 0; i < days; i++ {
		date := ""
		if !start.IsZero() {
			date = start.AddDate(0, 0, i).Format(model.DateLayout)
		}
		plans = append(plans, model.DayPlan{
			Day:         i + 1,
			Date:        date,
			Title:       fmt.Sprintf("Day %d - Explore %s", i+1, dest),
			Description: fmt.Sprintf("Discover the highlights of %s", dest),
			Activities: []string{
				"Visit local attractions",
				"Try local cuisine",
				"Explore markets and shopping areas",
			},
			Meals: []model.Meal{
				{Type: "breakfast", Suggestion: "Hotel breakfast", Cost: "₹500"},
				{Type: "lunch", Suggestion: "Local restaurant", Cost: "₹800"},
				{Type: "dinner", Suggestion: "Popular dining spot", Cost: "₹1200"},
			},
			Accommodation: &model.Accommodation{Name: "Recommended Hotel", Type: "Hotel", Cost: "₹3000"},
		})
	}

	return &model.Itinerary{
		Destination:   dest,
		DurationDays:  days,
		DailyPlans:    plans,
		EstimatedCost: req.Budget * 0.9,
		Hotels: []model.Hotel{
			{Name: "Luxury Stay", Rating: 4.5, PricePerNight: 5000, Amenities: []string{"Pool", "Spa", "Restaurant"}, Location: "City Center"},
			{Name: "Mid-Range Hotel", Rating: 4.0, PricePerNight: 3000, Amenities: []string{"WiFi", "Restaurant"}, Location: "Tourist Area"},
			{Name: "Budget Inn", Rating: 3.5, PricePerNight: 1500, Amenities: []string{"WiFi"}, Location: "Near Station"},
		},
		Flights: []model.Flight{
			{Airline: "IndiGo", Route: "Delhi to " + dest, Price: 4500, Duration: "2-3h", Departure: "08:00", Arrival: "10:30"},
		},
		LocalTransport: []model.Transport{
			{Type: "Taxi", Description: "Airport transfers", Cost: 1200},
			{Type: "Local transport", Description: "Daily commute", Cost: 500},
		},
		Tips: []string{
			"Best time to visit " + dest,
			"Carry cash for small purchases",
			"Book attractions in advance",
			"Try local specialties",
			"Respect local customs",
		},
		WeatherInfo: "Pleasant weather expected in " + dest,
		PackingList: []string{"Comfortable shoes", "Light clothing", "Sunscreen", "Camera", "Power bank", "Travel adapter", "Medications", "Toiletries"},
	}
}
