package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/requestcontext"
)

type FulfillCommand struct {
	RequestID  id.RequestID
	HospitalID id.HospitalID
	// DonorID selects whose accepted response completes the request. When nil the first
	// accepted response in log order is used, if any.
	DonorID *id.DonorID
}

type FulfillResult struct {
	Request *models.Request
	// CompletedDonor is nil when the hospital fulfilled without an accepted donor.
	CompletedDonor *id.DonorID
}

// Fulfill marks a request fulfilled. One donor is completed per fulfilment and their
// donation is recorded after the write.
func (s *Service) Fulfill(ctx context.Context, cmd FulfillCommand) (_ *FulfillResult, err error) {
	ctx, span := s.startSpan(ctx, "fulfill",
		attribute.String("blood_request_id", cmd.RequestID.String()),
		attribute.String("hospital_id", cmd.HospitalID.String()),
	)
	defer func() { s.endSpan(span, err) }()

	now := requestcontext.Now(ctx)
	var completed *id.DonorID
	updated, err := s.requests.Execute(ctx, cmd.RequestID,
		func(r *models.Request) error {
			if err := requireOwner(r, cmd.HospitalID); err != nil {
				return err
			}
			return r.CanFulfill(cmd.DonorID)
		},
		func(r *models.Request) { completed = r.ApplyFulfill(cmd.DonorID, now) },
	)
	if err != nil {
		return nil, translateStoreError(err, "fulfil request")
	}
	s.incrementRequestsClosed(updated.Status)

	attrs := []any{"hospital_id", cmd.HospitalID.String()}
	if completed != nil {
		attrs = append(attrs, "donor_id", completed.String())
	}
	s.logAudit(ctx, audit.EventRequestFulfilled, updated.ID, attrs...)

	if completed != nil {
		s.recordDonation(ctx, *completed, updated.ID, now)
	}
	return &FulfillResult{Request: updated, CompletedDonor: completed}, nil
}

// recordDonation is best effort: the request stays fulfilled when the donor history
// cannot be updated.
func (s *Service) recordDonation(ctx context.Context, donorID id.DonorID, requestID id.RequestID, at time.Time) {
	if s.donations == nil {
		return
	}
	if err := s.donations.RecordDonation(ctx, donorID, requestID, at); err != nil {
		s.logger.ErrorContext(ctx, "failed to record donation",
			"blood_request_id", requestID.String(),
			"donor_id", donorID.String(),
			"error", err,
		)
		return
	}
	s.logAudit(ctx, audit.EventDonationRecorded, requestID, "donor_id", donorID.String())
}
