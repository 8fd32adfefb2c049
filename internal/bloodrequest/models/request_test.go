package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/geo"
)

type RequestSuite struct {
	suite.Suite
	now time.Time
	req *Request
}

func TestRequestSuite(t *testing.T) {
	suite.Run(t, new(RequestSuite))
}

func (s *RequestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	req, err := NewRequest(
		id.NewRequestID(),
		id.HospitalID(uuid.New()),
		BloodTypeAPos,
		2,
		UrgencyHigh,
		&geo.Point{Lat: 51.5, Lng: -0.12},
		s.now,
	)
	s.Require().NoError(err)
	s.req = req
}

func newDonorID() id.DonorID { return id.DonorID(uuid.New()) }

func (s *RequestSuite) TestNewRequest() {
	s.Run("starts pending at stage 1 with base radius", func() {
		s.Equal(StatusPending, s.req.Status)
		s.Equal(1, s.req.Stage)
		s.InDelta(20.0, s.req.RadiusKm(), 0)
		s.Empty(s.req.Responses)
		s.Empty(s.req.NotifiedDonors)
		s.Equal(s.now, s.req.StageChangedAt)
	})

	s.Run("rejects zero units", func() {
		_, err := NewRequest(id.NewRequestID(), s.req.HospitalID, BloodTypeAPos, 0, UrgencyLow, nil, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown blood type", func() {
		_, err := NewRequest(id.NewRequestID(), s.req.HospitalID, "Q", 1, UrgencyLow, nil, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects out of range origin", func() {
		_, err := NewRequest(id.NewRequestID(), s.req.HospitalID, BloodTypeAPos, 1, UrgencyLow, &geo.Point{Lat: 91}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing origin is allowed", func() {
		req, err := NewRequest(id.NewRequestID(), s.req.HospitalID, BloodTypeAPos, 1, UrgencyLow, nil, s.now)
		s.Require().NoError(err)
		s.Nil(req.Origin)
	})
}

func (s *RequestSuite) TestRadiusForStage() {
	s.InDelta(20.0, RadiusForStage(1), 0)
	s.InDelta(30.0, RadiusForStage(2), 0)
	s.InDelta(40.0, RadiusForStage(3), 0)
	s.InDelta(50.0, RadiusForStage(4), 0)
	s.InDelta(50.0, RadiusForStage(9), 0)
	s.InDelta(20.0, RadiusForStage(0), 0)
}

func (s *RequestSuite) TestRespond() {
	donor := newDonorID()

	s.Require().NoError(s.req.CanRespond(donor))
	s.req.ApplyResponse(donor, DecisionAccept, s.now.Add(time.Minute))

	s.Run("first acceptance is stamped once", func() {
		s.Require().NotNil(s.req.FirstAcceptedAt)
		first := *s.req.FirstAcceptedAt

		other := newDonorID()
		s.req.ApplyResponse(other, DecisionAccept, s.now.Add(2*time.Minute))
		s.Equal(first, *s.req.FirstAcceptedAt)
	})

	s.Run("same donor cannot respond twice", func() {
		err := s.req.CanRespond(donor)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyResponded))
	})

	s.Run("decline does not stamp acceptance", func() {
		fresh, _ := NewRequest(id.NewRequestID(), s.req.HospitalID, BloodTypeAPos, 1, UrgencyLow, nil, s.now)
		fresh.ApplyResponse(newDonorID(), DecisionDecline, s.now)
		s.Nil(fresh.FirstAcceptedAt)
		s.False(fresh.HasAcceptedResponse())
	})

	s.Run("terminal request rejects responses", func() {
		s.req.ApplyCancel(s.now)
		err := s.req.CanRespond(newDonorID())
		s.True(dErrors.HasCode(err, dErrors.CodeRequestNotPending))
	})
}

func (s *RequestSuite) TestDonorCancellationWindow() {
	donor := newDonorID()
	acceptedAt := s.now.Add(time.Minute)
	s.req.ApplyResponse(donor, DecisionAccept, acceptedAt)

	s.Run("inside window", func() {
		s.NoError(s.req.CanCancelByDonor(donor, acceptedAt.Add(DonorCancelWindow)))
	})

	s.Run("past window", func() {
		err := s.req.CanCancelByDonor(donor, acceptedAt.Add(DonorCancelWindow+time.Second))
		s.True(dErrors.HasCode(err, dErrors.CodeCancelWindowExpired))
	})

	s.Run("donor without acceptance", func() {
		err := s.req.CanCancelByDonor(newDonorID(), acceptedAt)
		s.True(dErrors.HasCode(err, dErrors.CodeNoActiveCommitment))
	})

	s.Run("apply records donor as actor and frees the slot", func() {
		s.req.ApplyDonorCancellation(donor, acceptedAt.Add(time.Minute))
		resp := s.req.ResponseOf(donor)
		s.Equal(ResponseCancelled, resp.State)
		s.Equal(ActorDonor, resp.CancelledBy)
		s.NotNil(resp.CancelledAt)
		s.Empty(s.req.CommittedDonors())
	})
}

func (s *RequestSuite) TestHospitalCancelsDonor() {
	donor := newDonorID()
	s.req.ApplyResponse(donor, DecisionAccept, s.now)

	s.Require().NoError(s.req.CanCancelDonorByHospital(donor))
	s.req.ApplyHospitalCancellation(donor, s.now.Add(time.Hour))

	resp := s.req.ResponseOf(donor)
	s.Equal(ResponseCancelled, resp.State)
	s.Equal(ActorHospital, resp.CancelledBy)

	err := s.req.CanCancelDonorByHospital(donor)
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveCommitment))
}

func (s *RequestSuite) TestCancelRequest() {
	s.Run("records prior acceptance", func() {
		s.req.ApplyResponse(newDonorID(), DecisionAccept, s.now)
		s.Require().NoError(s.req.CanCancel())
		s.req.ApplyCancel(s.now.Add(time.Minute))

		s.Equal(StatusCancelled, s.req.Status)
		s.True(s.req.HadAcceptance)
		s.NotNil(s.req.CancelledAt)
		s.Empty(s.req.CommittedDonors(), "terminal request releases commitments")
	})

	s.Run("cannot cancel twice", func() {
		s.True(dErrors.HasCode(s.req.CanCancel(), dErrors.CodeRequestNotPending))
	})

	s.Run("no acceptance recorded when nobody accepted", func() {
		fresh, _ := NewRequest(id.NewRequestID(), s.req.HospitalID, BloodTypeAPos, 1, UrgencyLow, nil, s.now)
		fresh.ApplyResponse(newDonorID(), DecisionDecline, s.now)
		fresh.ApplyCancel(s.now)
		s.False(fresh.HadAcceptance)
	})
}

func (s *RequestSuite) TestFulfill() {
	first, second := newDonorID(), newDonorID()
	s.req.ApplyResponse(newDonorID(), DecisionDecline, s.now)
	s.req.ApplyResponse(first, DecisionAccept, s.now.Add(time.Minute))
	s.req.ApplyResponse(second, DecisionAccept, s.now.Add(2*time.Minute))

	s.Run("explicit donor must hold an acceptance", func() {
		stranger := newDonorID()
		s.True(dErrors.HasCode(s.req.CanFulfill(&stranger), dErrors.CodeNoActiveCommitment))
	})

	s.Run("without donor the first accepted entry completes", func() {
		req := s.req.Clone()
		s.Require().NoError(req.CanFulfill(nil))
		completed := req.ApplyFulfill(nil, s.now.Add(time.Hour))

		s.Require().NotNil(completed)
		s.Equal(first, *completed)
		s.Equal(ResponseCompleted, req.ResponseOf(first).State)
		s.Equal(ResponseAccepted, req.ResponseOf(second).State)
		s.Equal(StatusFulfilled, req.Status)
		s.NotNil(req.FulfilledAt)
		s.Empty(req.CommittedDonors())
	})

	s.Run("chosen donor completes", func() {
		req := s.req.Clone()
		s.Require().NoError(req.CanFulfill(&second))
		completed := req.ApplyFulfill(&second, s.now.Add(time.Hour))
		s.Equal(second, *completed)
		s.Equal(ResponseCompleted, req.ResponseOf(second).State)
	})

	s.Run("explicit fulfilment without acceptances", func() {
		req, _ := NewRequest(id.NewRequestID(), s.req.HospitalID, BloodTypeAPos, 1, UrgencyLow, nil, s.now)
		s.Require().NoError(req.CanFulfill(nil))
		s.Nil(req.ApplyFulfill(nil, s.now))
		s.Equal(StatusFulfilled, req.Status)
		s.True(dErrors.HasCode(req.CanFulfill(nil), dErrors.CodeRequestNotPending))
	})
}

func (s *RequestSuite) TestEscalation() {
	dwell := 5 * time.Minute

	s.Run("not due before dwell", func() {
		s.False(s.req.EscalationDue(s.now.Add(dwell-time.Second), dwell))
	})

	s.Run("due after dwell", func() {
		s.True(s.req.EscalationDue(s.now.Add(dwell), dwell))
	})

	s.Run("dwell restarts at each stage", func() {
		at := s.now.Add(dwell)
		s.req.ApplyEscalation(at)
		s.Equal(2, s.req.Stage)
		s.InDelta(30.0, s.req.RadiusKm(), 0)
		s.False(s.req.EscalationDue(at, dwell))
		s.True(s.req.EscalationDue(at.Add(dwell), dwell))
	})

	s.Run("not due with a current acceptance", func() {
		req := s.req.Clone()
		req.ApplyResponse(newDonorID(), DecisionAccept, s.now)
		s.False(req.EscalationDue(s.now.Add(time.Hour), dwell))
	})

	s.Run("stops at max stage", func() {
		req := s.req.Clone()
		for req.Stage < MaxStage {
			req.ApplyEscalation(s.now)
		}
		s.True(dErrors.HasCode(req.CanEscalate(), dErrors.CodeMaxStageReached))
		s.False(req.EscalationDue(s.now.Add(time.Hour), dwell))
	})

	s.Run("frozen after terminal", func() {
		req := s.req.Clone()
		req.ApplyCancel(s.now)
		s.True(dErrors.HasCode(req.CanEscalate(), dErrors.CodeRequestNotPending))
		s.False(req.EscalationDue(s.now.Add(time.Hour), dwell))
	})
}

func (s *RequestSuite) TestNotifiedSet() {
	a, b, c := newDonorID(), newDonorID(), newDonorID()

	s.Equal([]id.DonorID{a, b}, s.req.UnnotifiedDonors([]id.DonorID{a, b, a}))

	s.req.ApplyNotified([]id.DonorID{a, b}, s.now)
	s.Equal([]id.DonorID{c}, s.req.UnnotifiedDonors([]id.DonorID{a, b, c}))

	s.req.ApplyNotified([]id.DonorID{b, c}, s.now)
	s.Equal([]id.DonorID{a, b, c}, s.req.NotifiedDonors)
	s.True(s.req.HasNotified(c))
}

func (s *RequestSuite) TestCloneIsDeep() {
	donor := newDonorID()
	s.req.ApplyResponse(donor, DecisionAccept, s.now)
	s.req.ApplyNotified([]id.DonorID{donor}, s.now)

	cp := s.req.Clone()
	cp.ApplyDonorCancellation(donor, s.now)
	cp.ApplyNotified([]id.DonorID{newDonorID()}, s.now)
	cp.Origin.Lat = 0

	s.Equal(ResponseAccepted, s.req.ResponseOf(donor).State)
	s.Len(s.req.NotifiedDonors, 1)
	s.InDelta(51.5, s.req.Origin.Lat, 0)
}
