package audit

import (
	"time"

	id "bloodlink/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers donor commitments and request outcomes hospitals may
	// need to reconstruct later.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine engine activity (creation, escalation).
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category       EventCategory
	Timestamp      time.Time
	BloodRequestID id.RequestID
	Action         string
	ActorID        string
	ActorRole      string
	HospitalID     string
	DonorID        string
	Decision       string
	Reason         string
	// RequestID is the HTTP correlation ID, not the blood request.
	RequestID string
	ClientIP  string
	Device    string
	TraceID   string
}

type AuditEvent string

const (
	EventRequestCreated         AuditEvent = "request_created"
	EventRequestEscalated       AuditEvent = "request_escalated"
	EventRequestCancelled       AuditEvent = "request_cancelled"
	EventRequestFulfilled       AuditEvent = "request_fulfilled"
	EventDonorAccepted          AuditEvent = "donor_accepted"
	EventDonorDeclined          AuditEvent = "donor_declined"
	EventDonorCancelled         AuditEvent = "donor_cancelled"
	EventDonorCancelledHospital AuditEvent = "donor_cancelled_by_hospital"
	EventDonationRecorded       AuditEvent = "donation_recorded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRequestCancelled:       CategoryCompliance,
	EventRequestFulfilled:       CategoryCompliance,
	EventDonorAccepted:          CategoryCompliance,
	EventDonorCancelled:         CategoryCompliance,
	EventDonorCancelledHospital: CategoryCompliance,
	EventDonationRecorded:       CategoryCompliance,

	EventRequestCreated:   CategoryOperations,
	EventRequestEscalated: CategoryOperations,
	EventDonorDeclined:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
