package service

import (
	"errors"
	"strings"
	"time"

	"Itinera/internal/model"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxDestinationLength = 100

// GenerateItineraryRequest is the body of POST /api/v1/itineraries/generate.
type GenerateItineraryRequest struct {
	Destination string                `json:"destination"`
	StartDate   string                `json:"start_date"`
	EndDate     string                `json:"end_date"`
	Budget      float64               `json:"budget"`
	Travelers   int                   `json:"travelers"`
	Preferences model.TripPreferences `json:"preferences"`
}

// Normalize trims free-text fields in place.
func (r *GenerateItineraryRequest) Normalize() {
	r.Destination = strings.TrimSpace(r.Destination)
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
}

// Validate implements validation.Validatable.
func (r GenerateItineraryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Destination, validation.Required, validation.RuneLength(1, maxDestinationLength)),
		validation.Field(&r.StartDate, validation.Required, validation.Date(model.DateLayout)),
		validation.Field(&r.EndDate, validation.Required, validation.Date(model.DateLayout), validation.By(r.endAfterStart)),
		validation.Field(&r.Budget, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&r.Travelers, validation.Required, validation.Min(1)),
	)
}

func (r GenerateItineraryRequest) endAfterStart(value interface{}) error {
	end, _ := value.(string)
	s, err := time.Parse(model.DateLayout, r.StartDate)
	if err != nil {
		// reported on start_date
		return nil
	}
	e, err := time.Parse(model.DateLayout, end)
	if err != nil {
		return nil
	}
	if !e.After(s) {
		return errors.New("must be after start_date")
	}
	return nil
}

// TripRequest converts the validated body to the biz type.
func (r *GenerateItineraryRequest) TripRequest() *model.TripRequest {
	return &model.TripRequest{
		Destination: r.Destination,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Budget:      r.Budget,
		Travelers:   r.Travelers,
		Preferences: r.Preferences,
	}
}
