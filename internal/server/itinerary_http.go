package server

import (
	"context"
	nethttp "net/http"
	"strconv"

	"Itinera/internal/biz"
	"Itinera/internal/model"
	"Itinera/internal/service"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Route operations, used by the logging middleware.
const (
	OperationGenerateItinerary = "/itinera.v1.ItineraryService/GenerateItinerary"
	OperationHealth            = "/itinera.v1.ItineraryService/Health"
)

func registerItineraryHTTPServer(s *http.Server, svc *service.ItineraryService) {
	r := s.Route("/")
	r.POST("/api/v1/itineraries/generate", generateItineraryHandler(svc))
	r.GET("/api/v1/health", healthHandler(svc))
}

func generateItineraryHandler(svc *service.ItineraryService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.GenerateItineraryRequest
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest("INVALID_ARGUMENT", "malformed request body")
		}
		http.SetOperation(ctx, OperationGenerateItinerary)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.GenerateItinerary(ctx, req.(*service.GenerateItineraryRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			setRetryAfter(ctx, err)
			return err
		}
		return ctx.Result(nethttp.StatusOK, out)
	}
}

func healthHandler(svc *service.ItineraryService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationHealth)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.Health(ctx), nil
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		code := nethttp.StatusOK
		if d, ok := out.(*model.Diagnostics); ok && d.Status == biz.HealthUnhealthy {
			code = nethttp.StatusServiceUnavailable
		}
		return ctx.Result(code, out)
	}
}

// setRetryAfter copies the retry_after metadata of 429 errors into the
// Retry-After header before the error encoder writes the response.
func setRetryAfter(ctx http.Context, err error) {
	if !biz.IsOverloaded(err) && !biz.IsRateLimited(err) {
		return
	}
	if secs := biz.RetryAfter(err); secs > 0 {
		ctx.Response().Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
}
