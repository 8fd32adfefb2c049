package models

import (
	"slices"
	"strings"
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/geo"
)

const (
	MinStage = 1
	MaxStage = 4

	// BaseRadiusKm is the search radius at stage 1; each stage adds RadiusStepKm.
	BaseRadiusKm = 20.0
	RadiusStepKm = 10.0

	// DonorCancelWindow is how long after accepting a donor may still withdraw.
	DonorCancelWindow = 5 * time.Minute
)

// RadiusForStage returns the search radius for an escalation stage, clamped to 1..4.
func RadiusForStage(stage int) float64 {
	stage = max(MinStage, min(stage, MaxStage))
	return BaseRadiusKm + float64(stage-MinStage)*RadiusStepKm
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s == StatusFulfilled || s == StatusCancelled
}

// Urgency is advisory only and never affects eligibility.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) IsValid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	if u == "" {
		return UrgencyMedium, nil
	}
	if !u.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "urgency must be low, medium or high")
	}
	return u, nil
}

type ResponseState string

const (
	ResponseAccepted  ResponseState = "accepted"
	ResponseDeclined  ResponseState = "declined"
	ResponseCompleted ResponseState = "completed"
	ResponseCancelled ResponseState = "cancelled"
)

// Decision is what a donor answers to a notification.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionAccept, DecisionDecline:
		return d, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be accept or decline")
	}
}

// Actor records who cancelled a response.
type Actor string

const (
	ActorDonor    Actor = "donor"
	ActorHospital Actor = "hospital"
)

// Response is one entry of a request's append-only response log.
type Response struct {
	DonorID     id.DonorID    `json:"donor_id"`
	State       ResponseState `json:"state"`
	RespondedAt time.Time     `json:"responded_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	CancelledBy Actor         `json:"cancelled_by,omitempty"`
}

// Request is the aggregate root for one hospital's need for blood.
//
// Invariants:
//   - HospitalID is immutable after construction
//   - Units >= 1
//   - Status transitions: pending → fulfilled | cancelled only; terminal states are final
//   - Stage is in 1..4, never decreases, and only changes while pending
//   - A donor appears at most once in Responses
//   - NotifiedDonors and Responses are append-only
//   - FirstAcceptedAt is set once
type Request struct {
	ID              id.RequestID  `json:"id"`
	HospitalID      id.HospitalID `json:"hospital_id"`
	BloodType       BloodType     `json:"blood_type"`
	Units           int           `json:"units"`
	Urgency         Urgency       `json:"urgency"`
	Origin          *geo.Point    `json:"origin,omitempty"`
	Status          Status        `json:"status"`
	Stage           int           `json:"stage"`
	NotifiedDonors  []id.DonorID  `json:"notified_donors"`
	Responses       []Response    `json:"responses"`
	FirstAcceptedAt *time.Time    `json:"first_accepted_at,omitempty"`
	FulfilledAt     *time.Time    `json:"fulfilled_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	HadAcceptance   bool          `json:"had_acceptance"`
	// StageChangedAt is creation time until the first escalation; dwell time is
	// measured from it.
	StageChangedAt time.Time `json:"stage_changed_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewRequest(
	requestID id.RequestID,
	hospitalID id.HospitalID,
	bloodType BloodType,
	units int,
	urgency Urgency,
	origin *geo.Point,
	now time.Time,
) (*Request, error) {
	if hospitalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital is required")
	}
	if !bloodType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown blood type")
	}
	if units < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "units must be at least 1")
	}
	if !urgency.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "urgency must be low, medium or high")
	}
	if origin != nil && !origin.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "origin coordinates out of range")
	}
	var o *geo.Point
	if origin != nil {
		cp := *origin
		o = &cp
	}
	return &Request{
		ID:             requestID,
		HospitalID:     hospitalID,
		BloodType:      bloodType,
		Units:          units,
		Urgency:        urgency,
		Origin:         o,
		Status:         StatusPending,
		Stage:          MinStage,
		NotifiedDonors: []id.DonorID{},
		Responses:      []Response{},
		StageChangedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *Request) RadiusKm() float64 { return RadiusForStage(r.Stage) }

func (r *Request) IsPending() bool { return r.Status == StatusPending }

func (r *Request) IsOwnedBy(hospitalID id.HospitalID) bool { return r.HospitalID == hospitalID }

// ResponseOf returns the donor's log entry, or nil if the donor never responded.
func (r *Request) ResponseOf(donorID id.DonorID) *Response {
	for i := range r.Responses {
		if r.Responses[i].DonorID == donorID {
			return &r.Responses[i]
		}
	}
	return nil
}

// HasAcceptedResponse reports whether any response is currently accepted.
func (r *Request) HasAcceptedResponse() bool {
	return r.FirstAccepted() != nil
}

// FirstAccepted returns the earliest currently-accepted entry in log order.
func (r *Request) FirstAccepted() *Response {
	for i := range r.Responses {
		if r.Responses[i].State == ResponseAccepted {
			return &r.Responses[i]
		}
	}
	return nil
}

// CommittedDonors lists donors whose accepted response still holds their
// system-wide commitment slot. Only a pending request holds commitments.
func (r *Request) CommittedDonors() []id.DonorID {
	if !r.IsPending() {
		return nil
	}
	var out []id.DonorID
	for _, resp := range r.Responses {
		if resp.State == ResponseAccepted {
			out = append(out, resp.DonorID)
		}
	}
	return out
}

func (r *Request) HasNotified(donorID id.DonorID) bool {
	return slices.Contains(r.NotifiedDonors, donorID)
}

// UnnotifiedDonors filters candidates down to donors not yet in the notified set,
// dropping duplicates.
func (r *Request) UnnotifiedDonors(candidates []id.DonorID) []id.DonorID {
	seen := make(map[id.DonorID]struct{}, len(r.NotifiedDonors)+len(candidates))
	for _, d := range r.NotifiedDonors {
		seen[d] = struct{}{}
	}
	var out []id.DonorID
	for _, d := range candidates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// ApplyNotified appends donors to the notified set, skipping any already present.
func (r *Request) ApplyNotified(donorIDs []id.DonorID, now time.Time) {
	added := r.UnnotifiedDonors(donorIDs)
	if len(added) == 0 {
		return
	}
	r.NotifiedDonors = append(r.NotifiedDonors, added...)
	r.UpdatedAt = now
}

func (r *Request) requirePending() error {
	if !r.IsPending() {
		return dErrors.New(dErrors.CodeRequestNotPending, "request is "+string(r.Status))
	}
	return nil
}

// CanRespond checks the request-local preconditions of a donor response.
// The cross-request commitment check belongs to the store.
func (r *Request) CanRespond(donorID id.DonorID) error {
	if err := r.requirePending(); err != nil {
		return err
	}
	if r.ResponseOf(donorID) != nil {
		return dErrors.New(dErrors.CodeAlreadyResponded, "donor has already responded to this request")
	}
	return nil
}

// ApplyResponse appends the donor's response. Must only be called after CanRespond returns nil.
func (r *Request) ApplyResponse(donorID id.DonorID, decision Decision, now time.Time) {
	state := ResponseDeclined
	if decision == DecisionAccept {
		state = ResponseAccepted
		if r.FirstAcceptedAt == nil {
			t := now
			r.FirstAcceptedAt = &t
		}
	}
	r.Responses = append(r.Responses, Response{
		DonorID:     donorID,
		State:       state,
		RespondedAt: now,
	})
	r.UpdatedAt = now
}

func (r *Request) acceptedResponse(donorID id.DonorID) (*Response, error) {
	resp := r.ResponseOf(donorID)
	if resp == nil || resp.State != ResponseAccepted {
		return nil, dErrors.New(dErrors.CodeNoActiveCommitment, "donor has no accepted response on this request")
	}
	return resp, nil
}

// CanCancelByDonor allows withdrawal only within DonorCancelWindow of the donor's own acceptance.
func (r *Request) CanCancelByDonor(donorID id.DonorID, now time.Time) error {
	if err := r.requirePending(); err != nil {
		return err
	}
	resp, err := r.acceptedResponse(donorID)
	if err != nil {
		return err
	}
	if now.Sub(resp.RespondedAt) > DonorCancelWindow {
		return dErrors.New(dErrors.CodeCancelWindowExpired, "cancellation window has expired")
	}
	return nil
}

// ApplyDonorCancellation must only be called after CanCancelByDonor returns nil.
func (r *Request) ApplyDonorCancellation(donorID id.DonorID, now time.Time) {
	r.cancelResponse(donorID, ActorDonor, now)
}

// CanCancelDonorByHospital allows the hospital to drop an accepted donor any time before fulfilment.
func (r *Request) CanCancelDonorByHospital(donorID id.DonorID) error {
	if err := r.requirePending(); err != nil {
		return err
	}
	_, err := r.acceptedResponse(donorID)
	return err
}

// ApplyHospitalCancellation must only be called after CanCancelDonorByHospital returns nil.
func (r *Request) ApplyHospitalCancellation(donorID id.DonorID, now time.Time) {
	r.cancelResponse(donorID, ActorHospital, now)
}

func (r *Request) cancelResponse(donorID id.DonorID, actor Actor, now time.Time) {
	resp := r.ResponseOf(donorID)
	if resp == nil {
		return
	}
	t := now
	resp.State = ResponseCancelled
	resp.CancelledAt = &t
	resp.CancelledBy = actor
	r.UpdatedAt = now
}

// CanCancel checks that the request itself can be cancelled.
func (r *Request) CanCancel() error {
	return r.requirePending()
}

// ApplyCancel must only be called after CanCancel returns nil.
func (r *Request) ApplyCancel(now time.Time) {
	t := now
	r.Status = StatusCancelled
	r.CancelledAt = &t
	r.HadAcceptance = r.FirstAcceptedAt != nil
	r.UpdatedAt = now
}

// CanFulfill checks fulfilment preconditions. With a donor, that donor must hold an
// accepted response. Without one, any state is fine: the first accepted response is
// completed if there is one, otherwise the call is the hospital's explicit fulfilment.
func (r *Request) CanFulfill(donorID *id.DonorID) error {
	if err := r.requirePending(); err != nil {
		return err
	}
	if donorID != nil {
		if _, err := r.acceptedResponse(*donorID); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFulfill completes one donor's response (when any) and marks the request fulfilled.
// It returns the donor whose response was completed, or nil.
// Must only be called after CanFulfill returns nil.
func (r *Request) ApplyFulfill(donorID *id.DonorID, now time.Time) *id.DonorID {
	var resp *Response
	if donorID != nil {
		resp = r.ResponseOf(*donorID)
	} else {
		resp = r.FirstAccepted()
	}

	var completed *id.DonorID
	if resp != nil && resp.State == ResponseAccepted {
		t := now
		resp.State = ResponseCompleted
		resp.CompletedAt = &t
		d := resp.DonorID
		completed = &d
	}

	t := now
	r.Status = StatusFulfilled
	r.FulfilledAt = &t
	r.UpdatedAt = now
	return completed
}

// CanEscalate checks that the stage may still advance.
func (r *Request) CanEscalate() error {
	if err := r.requirePending(); err != nil {
		return err
	}
	if r.Stage >= MaxStage {
		return dErrors.New(dErrors.CodeMaxStageReached, "request is already at the widest radius")
	}
	return nil
}

// EscalationDue reports whether the scheduler should widen the radius now:
// dwell time has passed at the current stage and nobody is currently committed.
func (r *Request) EscalationDue(now time.Time, dwell time.Duration) bool {
	if r.CanEscalate() != nil {
		return false
	}
	if now.Sub(r.StageChangedAt) < dwell {
		return false
	}
	return !r.HasAcceptedResponse()
}

// ApplyEscalation advances exactly one stage. Must only be called after CanEscalate returns nil.
func (r *Request) ApplyEscalation(now time.Time) {
	r.Stage++
	r.StageChangedAt = now
	r.UpdatedAt = now
}

// Clone returns a deep copy safe to mutate independently.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Origin != nil {
		o := *r.Origin
		cp.Origin = &o
	}
	cp.NotifiedDonors = slices.Clone(r.NotifiedDonors)
	cp.Responses = make([]Response, len(r.Responses))
	for i, resp := range r.Responses {
		cp.Responses[i] = resp
		cp.Responses[i].CompletedAt = cloneTime(resp.CompletedAt)
		cp.Responses[i].CancelledAt = cloneTime(resp.CancelledAt)
	}
	cp.FirstAcceptedAt = cloneTime(r.FirstAcceptedAt)
	cp.FulfilledAt = cloneTime(r.FulfilledAt)
	cp.CancelledAt = cloneTime(r.CancelledAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
