package notification

import (
	"fmt"
	"strings"

	"bloodlink/internal/bloodrequest/models"
)

// Message is a rendered email ready for Dispatch.
type Message struct {
	Subject string
	Body    string
}

// RequestNearby invites a donor to respond to a new request.
func RequestNearby(req *models.Request, hospital *models.HospitalContact) Message {
	return Message{
		Subject: fmt.Sprintf("Urgent: %s blood needed near you", req.BloodType),
		Body: render(
			fmt.Sprintf("%s needs %d unit(s) of %s blood (urgency: %s).", hospitalName(hospital), req.Units, req.BloodType, req.Urgency),
			fmt.Sprintf("You are within %.0f km of the hospital and your blood type is compatible.", req.RadiusKm()),
			"Open the app to accept or decline. Request reference: "+req.ID.String(),
		),
	}
}

// RequestEscalated is sent to donors newly in range after the radius widens.
func RequestEscalated(req *models.Request, hospital *models.HospitalContact) Message {
	return Message{
		Subject: fmt.Sprintf("Still needed: %s blood within %.0f km", req.BloodType, req.RadiusKm()),
		Body: render(
			fmt.Sprintf("%s has not yet found a donor for %d unit(s) of %s blood.", hospitalName(hospital), req.Units, req.BloodType),
			fmt.Sprintf("The search now covers %.0f km and includes you.", req.RadiusKm()),
			"Open the app to accept or decline. Request reference: "+req.ID.String(),
		),
	}
}

// CommitmentCancelled tells a donor the hospital no longer needs them.
func CommitmentCancelled(req *models.Request, hospital *models.HospitalContact) Message {
	return Message{
		Subject: "Your donation appointment was cancelled",
		Body: render(
			fmt.Sprintf("%s has cancelled your accepted donation for request %s.", hospitalName(hospital), req.ID),
			"You are free to respond to other requests. Thank you for offering to help.",
		),
	}
}

func hospitalName(h *models.HospitalContact) string {
	if h == nil || h.Name == "" {
		return "A hospital"
	}
	return h.Name
}

func render(lines ...string) string {
	return strings.Join(lines, "\n\n") + "\n"
}
