package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/requestcontext"
)

const (
	TriggerScheduler = "scheduler"
	TriggerHospital  = "hospital"
)

// EscalationReport summarises one EscalateStale pass.
type EscalationReport struct {
	Scanned   int
	Escalated int
	Skipped   int
	Failed    int
}

// Escalate widens the radius of a request on the hospital's demand. Unlike the scheduler it
// ignores dwell time and current acceptances.
func (s *Service) Escalate(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "escalate",
		attribute.String("blood_request_id", requestID.String()),
		attribute.String("hospital_id", hospitalID.String()),
		attribute.String("trigger", TriggerHospital),
	)
	defer func() { s.endSpan(span, err) }()

	current, err := s.GetRequest(ctx, requestID, hospitalID)
	if err != nil {
		return nil, err
	}
	if err := current.CanEscalate(); err != nil {
		return nil, err
	}
	eligible, err := s.discover(ctx, current, models.RadiusForStage(current.Stage+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "donor discovery failed")
	}

	now := requestcontext.Now(ctx)
	updated, added, err := s.writeWithNotified(ctx, requestID, eligible,
		func(r *models.Request) error {
			if err := requireOwner(r, hospitalID); err != nil {
				return err
			}
			if err := r.CanEscalate(); err != nil {
				return err
			}
			if r.Stage != current.Stage {
				return dErrors.New(dErrors.CodeConflict, "request was escalated concurrently")
			}
			return nil
		},
		func(r *models.Request) { r.ApplyEscalation(now) },
	)
	if err != nil {
		return nil, translateStoreError(err, "escalate request")
	}
	s.afterEscalation(ctx, updated, added, TriggerHospital)
	return updated, nil
}

// EscalateStale advances every pending request that has sat at its stage for the dwell
// time with no accepted donor. Per-request failures are logged and counted; the request
// is picked up again on the next pass.
func (s *Service) EscalateStale(ctx context.Context, now time.Time) (EscalationReport, error) {
	ctx = requestcontext.WithTime(ctx, now)
	ctx, span := s.startSpan(ctx, "escalate_stale")
	defer span.End()

	var report EscalationReport
	candidates, err := s.requests.ListEscalationCandidates(ctx, now, s.dwell)
	if err != nil {
		return report, translateStoreError(err, "list escalation candidates")
	}
	report.Scanned = len(candidates)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		escalated, err := s.escalateStaleOne(ctx, candidate, now)
		switch {
		case err != nil:
			report.Failed++
			s.logger.ErrorContext(ctx, "escalation failed",
				"blood_request_id", candidate.ID.String(),
				"stage", candidate.Stage,
				"error", err,
			)
		case escalated:
			report.Escalated++
		default:
			report.Skipped++
		}
	}
	span.SetAttributes(
		attribute.Int("escalated", report.Escalated),
		attribute.Int("failed", report.Failed),
	)
	return report, nil
}

// escalateStaleOne discovers donors at the next radius before writing, so a discovery
// failure leaves the stage untouched and the request is retried on the next pass.
func (s *Service) escalateStaleOne(ctx context.Context, candidate *models.Request, now time.Time) (bool, error) {
	if !candidate.EscalationDue(now, s.dwell) {
		return false, nil
	}
	eligible, err := s.discover(ctx, candidate, models.RadiusForStage(candidate.Stage+1))
	if err != nil {
		return false, err
	}

	updated, added, err := s.writeWithNotified(ctx, candidate.ID, eligible,
		func(r *models.Request) error {
			if r.Stage != candidate.Stage || !r.EscalationDue(now, s.dwell) {
				return errNothingToDo
			}
			return nil
		},
		func(r *models.Request) { r.ApplyEscalation(now) },
	)
	if errors.Is(err, errNothingToDo) {
		return false, nil
	}
	if err != nil {
		return false, translateStoreError(err, "escalate request")
	}
	s.afterEscalation(ctx, updated, added, TriggerScheduler)
	return true, nil
}

func (s *Service) afterEscalation(ctx context.Context, req *models.Request, added []models.Donor, trigger string) {
	s.incrementEscalations(trigger)
	s.logAudit(ctx, audit.EventRequestEscalated, req.ID,
		"hospital_id", req.HospitalID.String(),
		"stage", req.Stage,
		"radius_km", req.RadiusKm(),
		"donors_notified", len(added),
		"reason", trigger,
	)
	s.dispatchAll(ctx, req, added, notification.RequestEscalated)
}
