package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/requestcontext"
)

// CancelByDonor withdraws the donor's own acceptance within the cancellation window.
func (s *Service) CancelByDonor(ctx context.Context, requestID id.RequestID, donorID id.DonorID) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "cancel_by_donor",
		attribute.String("blood_request_id", requestID.String()),
		attribute.String("donor_id", donorID.String()),
	)
	defer func() { s.endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	updated, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanCancelByDonor(donorID, now) },
		func(r *models.Request) { r.ApplyDonorCancellation(donorID, now) },
	)
	if err != nil {
		return nil, translateStoreError(err, "cancel response")
	}
	s.logAudit(ctx, audit.EventDonorCancelled, updated.ID,
		"hospital_id", updated.HospitalID.String(),
		"donor_id", donorID.String(),
	)
	return updated, nil
}

// CancelDonorByHospital drops an accepted donor before fulfilment and tells them so.
func (s *Service) CancelDonorByHospital(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID, donorID id.DonorID) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "cancel_donor_by_hospital",
		attribute.String("blood_request_id", requestID.String()),
		attribute.String("hospital_id", hospitalID.String()),
		attribute.String("donor_id", donorID.String()),
	)
	defer func() { s.endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	updated, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := requireOwner(r, hospitalID); err != nil {
				return err
			}
			return r.CanCancelDonorByHospital(donorID)
		},
		func(r *models.Request) { r.ApplyHospitalCancellation(donorID, now) },
	)
	if err != nil {
		return nil, translateStoreError(err, "cancel donor")
	}
	s.logAudit(ctx, audit.EventDonorCancelledHospital, updated.ID,
		"hospital_id", hospitalID.String(),
		"donor_id", donorID.String(),
	)

	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		s.logger.WarnContext(ctx, "donor unavailable for cancellation notice",
			"blood_request_id", updated.ID.String(),
			"donor_id", donorID.String(),
			"error", err,
		)
		return updated, nil
	}
	s.dispatchAll(ctx, updated, []models.Donor{*donor}, notification.CommitmentCancelled)
	return updated, nil
}

// CancelRequest closes a pending request. Every commitment held on it is released.
func (s *Service) CancelRequest(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) (_ *models.Request, err error) {
	ctx, span := s.startSpan(ctx, "cancel_request",
		attribute.String("blood_request_id", requestID.String()),
		attribute.String("hospital_id", hospitalID.String()),
	)
	defer func() { s.endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	updated, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := requireOwner(r, hospitalID); err != nil {
				return err
			}
			return r.CanCancel()
		},
		func(r *models.Request) { r.ApplyCancel(now) },
	)
	if err != nil {
		return nil, translateStoreError(err, "cancel request")
	}
	s.incrementRequestsClosed(updated.Status)
	s.logAudit(ctx, audit.EventRequestCancelled, updated.ID,
		"hospital_id", hospitalID.String(),
		"had_acceptance", updated.HadAcceptance,
	)
	return updated, nil
}
