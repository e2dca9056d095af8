package service

import (
	"context"

	"Itinera/internal/biz"
	"Itinera/internal/model"
	pkglog "Itinera/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const anonymousClient = "anonymous"

// ItineraryService serves itinerary generation and diagnostics.
type ItineraryService struct {
	uc      *biz.ItineraryUsecase
	limiter *biz.RateLimiterUseCase
	health  *biz.HealthUsecase
	logger  *pkglog.LogHelper
}

// NewItineraryService creates a new ItineraryService instance.
func NewItineraryService(uc *biz.ItineraryUsecase, limiter *biz.RateLimiterUseCase, health *biz.HealthUsecase, logger log.Logger) *ItineraryService {
	return &ItineraryService{
		uc:      uc,
		limiter: limiter,
		health:  health,
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "service/itinerary")),
	}
}

// GenerateItinerary validates the request, applies the per-client limit and
// runs the orchestrator.
func (s *ItineraryService) GenerateItinerary(ctx context.Context, req *GenerateItineraryRequest) (*model.GenerateResult, error) {
	if req == nil {
		return nil, errors.BadRequest("INVALID_ARGUMENT", "request body is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.logger.Debugw("msg", "invalid generate request", "error", err)
		return nil, errors.BadRequest("INVALID_ARGUMENT", err.Error())
	}

	client := pkglog.GetClientIP(ctx)
	if client == "" {
		client = anonymousClient
	}
	if err := s.limiter.CheckRate(ctx, client); err != nil {
		return nil, err
	}

	res, err := s.uc.Generate(ctx, req.TripRequest())
	if err != nil {
		if !biz.IsOverloaded(err) {
			s.logger.Warnw("msg", "generate failed", "destination", req.Destination, "error", err)
		}
		return nil, err
	}

	s.logger.Success("itinerary served",
		"request_id", pkglog.GetRequestID(ctx),
		"destination", req.Destination,
		"source", res.Source,
	)
	return res, nil
}

// Health returns the diagnostics snapshot.
func (s *ItineraryService) Health(ctx context.Context) *model.Diagnostics {
	return s.health.Diagnostics(ctx)
}
