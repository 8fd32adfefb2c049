package handler

import (
	"time"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/bloodrequest/service"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/audit"
)

// RequestResponse is the hospital's view of a request.
type RequestResponse struct {
	ID              string             `json:"id"`
	BloodType       string             `json:"blood_type"`
	Units           int                `json:"units"`
	Urgency         string             `json:"urgency"`
	Status          string             `json:"status"`
	Stage           int                `json:"stage"`
	RadiusKm        float64            `json:"radius_km"`
	Origin          *geo.Point         `json:"origin,omitempty"`
	DonorsNotified  int                `json:"donors_notified"`
	Responses       []ResponseResponse `json:"responses"`
	HadAcceptance   bool               `json:"had_acceptance"`
	FirstAcceptedAt *time.Time         `json:"first_accepted_at,omitempty"`
	FulfilledAt     *time.Time         `json:"fulfilled_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type ResponseResponse struct {
	DonorID     string     `json:"donor_id"`
	State       string     `json:"state"`
	RespondedAt time.Time  `json:"responded_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
}

func FromRequest(r *models.Request) *RequestResponse {
	out := &RequestResponse{
		ID:              r.ID.String(),
		BloodType:       string(r.BloodType),
		Units:           r.Units,
		Urgency:         string(r.Urgency),
		Status:          string(r.Status),
		Stage:           r.Stage,
		RadiusKm:        r.RadiusKm(),
		Origin:          r.Origin,
		DonorsNotified:  len(r.NotifiedDonors),
		Responses:       make([]ResponseResponse, 0, len(r.Responses)),
		HadAcceptance:   r.HadAcceptance,
		FirstAcceptedAt: r.FirstAcceptedAt,
		FulfilledAt:     r.FulfilledAt,
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, resp := range r.Responses {
		out.Responses = append(out.Responses, fromResponse(resp))
	}
	return out
}

func fromResponse(resp models.Response) ResponseResponse {
	return ResponseResponse{
		DonorID:     resp.DonorID.String(),
		State:       string(resp.State),
		RespondedAt: resp.RespondedAt,
		CompletedAt: resp.CompletedAt,
		CancelledAt: resp.CancelledAt,
		CancelledBy: string(resp.CancelledBy),
	}
}

// DonorRequestResponse is what a donor sees: the request summary and their own response,
// never other donors'.
type DonorRequestResponse struct {
	RequestID string            `json:"request_id"`
	BloodType string            `json:"blood_type"`
	Units     int               `json:"units"`
	Urgency   string            `json:"urgency"`
	Status    string            `json:"status"`
	Response  *ResponseResponse `json:"response,omitempty"`
	Hospital  *HospitalResponse `json:"hospital,omitempty"`
}

type HospitalResponse struct {
	Name     string     `json:"name"`
	Email    string     `json:"email,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Address  string     `json:"address,omitempty"`
	Location *geo.Point `json:"location,omitempty"`
}

func FromDonorView(r *models.Request, donorID id.DonorID) *DonorRequestResponse {
	out := &DonorRequestResponse{
		RequestID: r.ID.String(),
		BloodType: string(r.BloodType),
		Units:     r.Units,
		Urgency:   string(r.Urgency),
		Status:    string(r.Status),
	}
	if resp := r.ResponseOf(donorID); resp != nil {
		view := fromResponse(*resp)
		out.Response = &view
	}
	return out
}

func FromRespondResult(res *service.RespondResult) *DonorRequestResponse {
	out := FromDonorView(res.Request, res.Response.DonorID)
	if h := res.Hospital; h != nil {
		out.Hospital = &HospitalResponse{
			Name:     h.Name,
			Email:    h.Email,
			Phone:    h.Phone,
			Address:  h.Address,
			Location: h.Location,
		}
	}
	return out
}

type FulfillResponse struct {
	*RequestResponse
	CompletedDonorID string `json:"completed_donor_id,omitempty"`
}

func FromFulfillResult(res *service.FulfillResult) *FulfillResponse {
	out := &FulfillResponse{RequestResponse: FromRequest(res.Request)}
	if res.CompletedDonor != nil {
		out.CompletedDonorID = res.CompletedDonor.String()
	}
	return out
}

// HistoryEntry is one audit event in a request's history.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	ActorRole string    `json:"actor_role,omitempty"`
	DonorID   string    `json:"donor_id,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

type HistoryResponse struct {
	Events []HistoryEntry `json:"events"`
}

func FromEvents(events []audit.Event) *HistoryResponse {
	out := &HistoryResponse{Events: make([]HistoryEntry, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, HistoryEntry{
			Action:    e.Action,
			Timestamp: e.Timestamp,
			ActorRole: e.ActorRole,
			DonorID:   e.DonorID,
			Decision:  e.Decision,
			Reason:    e.Reason,
		})
	}
	return out
}
