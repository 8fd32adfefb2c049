package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"bloodlink/internal/bloodrequest/eligibility"
	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/requestcontext"
)

type messageBuilder func(req *models.Request, hospital *models.HospitalContact) notification.Message

// discover runs eligibility for req at radiusKm.
func (s *Service) discover(ctx context.Context, req *models.Request, radiusKm float64) ([]models.Donor, error) {
	defer s.observeEligibility(time.Now())
	return s.finder.FindEligible(ctx, eligibility.Query{
		BloodType:        req.BloodType,
		Origin:           req.Origin,
		RadiusKm:         radiusKm,
		ExcludeRequestID: req.ID,
	})
}

// selectNew returns the donors in eligible that are not yet in the notified set.
func selectNew(req *models.Request, eligible []models.Donor) []models.Donor {
	fresh := req.UnnotifiedDonors(eligibility.IDs(eligible))
	if len(fresh) == 0 {
		return nil
	}
	byID := make(map[id.DonorID]models.Donor, len(eligible))
	for _, d := range eligible {
		byID[d.ID] = d
	}
	out := make([]models.Donor, 0, len(fresh))
	for _, donorID := range fresh {
		out = append(out, byID[donorID])
	}
	return out
}

// errNothingToDo aborts an Execute whose write would be a no-op.
var errNothingToDo = errors.New("nothing to do")

// writeWithNotified applies mutate and, in the same atomic write, adds the donors of
// eligible that are not yet in the notified set. Donors are recorded before any email
// is sent so a failed or repeated run never emails the same donor twice for one
// request.
func (s *Service) writeWithNotified(
	ctx context.Context,
	requestID id.RequestID,
	eligible []models.Donor,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, []models.Donor, error) {
	now := requestcontext.Now(ctx)
	var added []models.Donor
	updated, err := s.requests.Execute(ctx, requestID, validate, func(r *models.Request) {
		mutate(r)
		added = selectNew(r, eligible)
		r.ApplyNotified(eligibility.IDs(added), now)
	})
	if err != nil {
		return nil, nil, err
	}
	s.addDonorsNotified(len(added))
	return updated, added, nil
}

// notifyEligible records and emails donors from eligible that have not been notified.
// A request that is no longer pending is left alone.
func (s *Service) notifyEligible(ctx context.Context, req *models.Request, eligible []models.Donor, build messageBuilder) (*models.Request, error) {
	updated, added, err := s.writeWithNotified(ctx, req.ID, eligible,
		func(r *models.Request) error {
			if !r.IsPending() || len(selectNew(r, eligible)) == 0 {
				return errNothingToDo
			}
			return nil
		},
		func(*models.Request) {},
	)
	if errors.Is(err, errNothingToDo) {
		return req, nil
	}
	if err != nil {
		return nil, translateStoreError(err, "record notified donors")
	}
	s.dispatchAll(ctx, updated, added, build)
	return updated, nil
}

// dispatchAll fans out emails with bounded concurrency. Failures are logged and
// counted; they never fail the caller.
func (s *Service) dispatchAll(ctx context.Context, req *models.Request, donors []models.Donor, build messageBuilder) {
	if len(donors) == 0 {
		return
	}
	hospital, err := s.hospitals.FindContact(ctx, req.HospitalID)
	if err != nil {
		s.logger.WarnContext(ctx, "hospital contact unavailable for notification",
			"blood_request_id", req.ID.String(),
			"error", err,
		)
		hospital = nil
	}
	msg := build(req, hospital)

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(s.notifyConcurrency)
	for _, d := range donors {
		g.Go(func() error {
			s.notifyDonor(gctx, req.ID, d, msg)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) notifyDonor(ctx context.Context, requestID id.RequestID, d models.Donor, msg notification.Message) {
	if d.Email == "" {
		s.logger.WarnContext(ctx, "donor has no email, skipping notification",
			"blood_request_id", requestID.String(),
			"donor_id", d.ID.String(),
		)
		return
	}
	if err := s.notifier.Dispatch(ctx, d.Email, msg.Subject, msg.Body); err != nil {
		s.incrementNotifyFailures()
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"blood_request_id", requestID.String(),
			"donor_id", d.ID.String(),
			"error", err,
		)
	}
}
