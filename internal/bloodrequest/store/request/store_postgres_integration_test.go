//go:build integration

package request_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/bloodrequest/store/request"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *request.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = request.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	err := s.postgres.TruncateTables(context.Background(), "request_responses", "blood_requests")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) createRequest(createdAt time.Time) *models.Request {
	req, err := models.NewRequest(
		id.NewRequestID(),
		id.HospitalID(uuid.New()),
		models.BloodTypeBNeg,
		2,
		models.UrgencyHigh,
		&geo.Point{Lat: 52.52, Lng: 13.40},
		createdAt,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), req))
	return req
}

func (s *PostgresStoreSuite) respond(reqID id.RequestID, donor id.DonorID, decision models.Decision) error {
	_, err := s.store.Execute(context.Background(), reqID,
		func(r *models.Request) error { return r.CanRespond(donor) },
		func(r *models.Request) { r.ApplyResponse(donor, decision, s.now) },
	)
	return err
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	req := s.createRequest(s.now)
	a, b := id.DonorID(uuid.New()), id.DonorID(uuid.New())

	_, err := s.store.Execute(ctx, req.ID,
		func(*models.Request) error { return nil },
		func(r *models.Request) { r.ApplyNotified([]id.DonorID{a, b}, s.now) },
	)
	s.Require().NoError(err)
	s.Require().NoError(s.respond(req.ID, b, models.DecisionDecline))
	s.Require().NoError(s.respond(req.ID, a, models.DecisionAccept))

	got, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.HospitalID, got.HospitalID)
	s.Equal(models.BloodTypeBNeg, got.BloodType)
	s.Equal(2, got.Units)
	s.InDelta(52.52, got.Origin.Lat, 1e-9)
	s.Equal([]id.DonorID{a, b}, got.NotifiedDonors)
	s.Require().Len(got.Responses, 2)
	s.Equal(b, got.Responses[0].DonorID)
	s.Equal(models.ResponseDeclined, got.Responses[0].State)
	s.Equal(models.ResponseAccepted, got.Responses[1].State)
	s.Require().NotNil(got.FirstAcceptedAt)
	s.True(s.now.Equal(*got.FirstAcceptedAt))
}

func (s *PostgresStoreSuite) TestNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewRequestID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Execute(context.Background(), id.NewRequestID(),
		func(*models.Request) error { return nil }, func(*models.Request) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestValidationErrorRollsBack() {
	req := s.createRequest(s.now)
	donor := id.DonorID(uuid.New())
	s.Require().NoError(s.respond(req.ID, donor, models.DecisionAccept))

	err := s.respond(req.ID, donor, models.DecisionAccept)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyResponded))

	got, _ := s.store.FindByID(context.Background(), req.ID)
	s.Len(got.Responses, 1)
}

func (s *PostgresStoreSuite) TestCommitmentIsExclusivePerDonor() {
	ctx := context.Background()
	x := s.createRequest(s.now)
	y := s.createRequest(s.now)
	donor := id.DonorID(uuid.New())

	s.Require().NoError(s.respond(x.ID, donor, models.DecisionAccept))
	err := s.respond(y.ID, donor, models.DecisionAccept)
	s.ErrorIs(err, sentinel.ErrConflict)

	reqID, ok, err := s.store.ActiveCommitment(ctx, donor)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(x.ID, reqID)

	_, err = s.store.Execute(ctx, x.ID,
		func(r *models.Request) error { return r.CanCancel() },
		func(r *models.Request) { r.ApplyCancel(s.now) },
	)
	s.Require().NoError(err)

	commitments, err := s.store.ActiveCommitments(ctx)
	s.Require().NoError(err)
	s.Empty(commitments)

	s.NoError(s.respond(y.ID, donor, models.DecisionAccept))
}

// TestConcurrentAccepts races the same donor against two requests. The unique index
// must let exactly one through.
func (s *PostgresStoreSuite) TestConcurrentAccepts() {
	x := s.createRequest(s.now)
	y := s.createRequest(s.now)
	donor := id.DonorID(uuid.New())

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for _, reqID := range []id.RequestID{x.ID, y.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.respond(reqID, donor, models.DecisionAccept)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(1), conflictCount.Load())
}

// TestConcurrentEscalationsAdvanceOnce checks FOR UPDATE serialises guarded writers.
func (s *PostgresStoreSuite) TestConcurrentEscalationsAdvanceOnce() {
	ctx := context.Background()
	dwell := 5 * time.Minute
	req := s.createRequest(s.now.Add(-10 * time.Minute))

	const goroutines = 10
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.store.Execute(ctx, req.ID,
				func(r *models.Request) error {
					if !r.EscalationDue(s.now, dwell) {
						return dErrors.New(dErrors.CodeConflict, "not due")
					}
					return nil
				},
				func(r *models.Request) { r.ApplyEscalation(s.now) },
			)
		}()
	}
	wg.Wait()

	got, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(2, got.Stage)
}

func (s *PostgresStoreSuite) TestListEscalationCandidates() {
	ctx := context.Background()
	due := s.createRequest(s.now.Add(-10 * time.Minute))
	s.createRequest(s.now)

	got, err := s.store.ListEscalationCandidates(ctx, s.now, 5*time.Minute)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(due.ID, got[0].ID)
}
