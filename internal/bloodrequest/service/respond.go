package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

type RespondCommand struct {
	RequestID id.RequestID
	DonorID   id.DonorID
	Decision  string
}

type RespondResult struct {
	Request  *models.Request
	Response models.Response
	// Hospital is set on accept so the donor can reach the hospital. It is nil when the
	// contact could not be loaded.
	Hospital *models.HospitalContact
}

// Respond records a donor's accept or decline. Accepting commits the donor to this
// request until the response is cancelled or the request closes.
func (s *Service) Respond(ctx context.Context, cmd RespondCommand) (_ *RespondResult, err error) {
	ctx, span := s.startSpan(ctx, "respond",
		attribute.String("blood_request_id", cmd.RequestID.String()),
		attribute.String("donor_id", cmd.DonorID.String()),
		attribute.String("decision", cmd.Decision),
	)
	defer func() { s.endSpan(span, err) }()

	decision, err := models.ParseDecision(cmd.Decision)
	if err != nil {
		return nil, err
	}
	donor, err := s.donors.FindByID(ctx, cmd.DonorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}

	now := requestcontext.Now(ctx)
	disasterActive := s.override.Active(ctx)
	updated, err := s.requests.Execute(ctx, cmd.RequestID,
		func(r *models.Request) error {
			if err := r.CanRespond(cmd.DonorID); err != nil {
				return err
			}
			if decision != models.DecisionAccept {
				return nil
			}
			if donor.BloodType == nil || !models.CanDonate(*donor.BloodType, r.BloodType) {
				return dErrors.New(dErrors.CodeIncompatibleBloodType, "donor blood type cannot be given to "+string(r.BloodType))
			}
			if !disasterActive && donor.InCooldown(now) {
				return dErrors.New(dErrors.CodeCooldownActive, "donor donated within the last 90 days")
			}
			return nil
		},
		func(r *models.Request) {
			r.ApplyResponse(cmd.DonorID, decision, now)
		},
	)
	if err != nil {
		return nil, translateStoreError(err, "record response")
	}
	s.incrementResponses(decision)

	event := audit.EventDonorDeclined
	if decision == models.DecisionAccept {
		event = audit.EventDonorAccepted
	}
	s.logAudit(ctx, event, updated.ID,
		"hospital_id", updated.HospitalID.String(),
		"donor_id", cmd.DonorID.String(),
		"decision", string(decision),
		"disaster", disasterActive,
	)

	result := &RespondResult{Request: updated, Response: *updated.ResponseOf(cmd.DonorID)}
	if decision == models.DecisionAccept {
		contact, err := s.hospitals.FindContact(ctx, updated.HospitalID)
		if err != nil {
			s.logger.WarnContext(ctx, "hospital contact unavailable after accept",
				"blood_request_id", updated.ID.String(),
				"donor_id", cmd.DonorID.String(),
				"error", err,
			)
		} else {
			result.Hospital = contact
		}
	}
	return result, nil
}
