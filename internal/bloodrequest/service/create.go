package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

// CreateCommand carries raw hospital input for a new request.
type CreateCommand struct {
	HospitalID id.HospitalID
	BloodType  string
	Units      int
	Urgency    string
	// Origin overrides the hospital's registered location when set.
	Origin *geo.Point
}

// CreateRequest opens a request at stage 1 and notifies every eligible donor within the
// base radius. A notification or discovery failure after the request is stored is logged;
// the request is still returned.
func (s *Service) CreateRequest(ctx context.Context, cmd CreateCommand) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "create",
		attribute.String("hospital_id", cmd.HospitalID.String()),
		attribute.String("blood_type", cmd.BloodType),
	)
	defer func() { s.endSpan(span, err) }()

	bloodType, err := models.ParseBloodType(cmd.BloodType)
	if err != nil {
		return nil, err
	}
	urgency, err := models.ParseUrgency(cmd.Urgency)
	if err != nil {
		return nil, err
	}

	contact, err := s.hospitals.FindContact(ctx, cmd.HospitalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "hospital not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load hospital")
	}
	origin := cmd.Origin
	if origin == nil {
		origin = contact.Location
	}

	now := requestcontext.Now(ctx)
	req, err := models.NewRequest(id.NewRequestID(), cmd.HospitalID, bloodType, cmd.Units, urgency, origin, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
		}
		return nil, err
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, translateStoreError(err, "create request")
	}
	s.incrementRequestsCreated()
	s.logAudit(ctx, audit.EventRequestCreated, req.ID,
		"hospital_id", req.HospitalID.String(),
		"blood_type", string(req.BloodType),
		"units", req.Units,
		"urgency", string(req.Urgency),
	)

	if req.Origin == nil {
		s.logger.WarnContext(ctx, "request has no origin, no donors can be matched",
			"blood_request_id", req.ID.String(),
		)
		return req, nil
	}

	eligible, err := s.discover(ctx, req, req.RadiusKm())
	if err != nil {
		s.logger.ErrorContext(ctx, "initial donor discovery failed",
			"blood_request_id", req.ID.String(),
			"error", err,
		)
		return req, nil
	}
	updated, err := s.notifyEligible(ctx, req, eligible, notification.RequestNearby)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record notified donors",
			"blood_request_id", req.ID.String(),
			"error", err,
		)
		return req, nil
	}
	return updated, nil
}
