package handler

import (
	"strings"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/geo"
)

const maxUnits = 50

// CreateRequest is the body of POST /v1/requests.
type CreateRequest struct {
	BloodType string     `json:"blood_type"`
	Units     int        `json:"units"`
	Urgency   string     `json:"urgency"`
	Origin    *geo.Point `json:"origin,omitempty"`

	parsedBloodType models.BloodType
	parsedUrgency   models.Urgency
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.BloodType) == "" {
		return dErrors.New(dErrors.CodeValidation, "blood_type is required")
	}
	bt, err := models.ParseBloodType(r.BloodType)
	if err != nil {
		return err
	}
	r.parsedBloodType = bt

	if r.Units < 1 || r.Units > maxUnits {
		return dErrors.New(dErrors.CodeValidation, "units must be between 1 and 50")
	}
	urgency, err := models.ParseUrgency(r.Urgency)
	if err != nil {
		return err
	}
	r.parsedUrgency = urgency

	if r.Origin != nil && !r.Origin.Valid() {
		return dErrors.New(dErrors.CodeValidation, "origin coordinates out of range")
	}
	return nil
}

// RespondRequest is the body of POST /v1/requests/{id}/responses.
type RespondRequest struct {
	Decision string `json:"decision"`

	parsedDecision models.Decision
}

func (r *RespondRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	d, err := models.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	r.parsedDecision = d
	return nil
}

// FulfillRequest is the optional body of POST /v1/requests/{id}/fulfill.
type FulfillRequest struct {
	DonorID string `json:"donor_id,omitempty"`

	parsedDonorID *id.DonorID
}

func (r *FulfillRequest) Validate() error {
	if r == nil {
		return nil
	}
	r.DonorID = strings.TrimSpace(r.DonorID)
	if r.DonorID == "" {
		return nil
	}
	donorID, err := id.ParseDonorID(r.DonorID)
	if err != nil {
		return err
	}
	r.parsedDonorID = &donorID
	return nil
}
