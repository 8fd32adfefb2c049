package models

import (
	"time"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
)

// CooldownPeriod is the minimum gap between two donations by the same donor.
const CooldownPeriod = 90 * 24 * time.Hour

// Availability is the donor's self-declared tier.
type Availability string

const (
	AvailabilityNormal        Availability = "normal"
	AvailabilityEmergencyOnly Availability = "emergency_only"
)

// Donor is the read-only view of a registered donor the engine matches against.
// It is owned by the profile flow; the engine never mutates it.
type Donor struct {
	ID                 id.DonorID   `json:"id"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	BloodType          *BloodType   `json:"blood_type,omitempty"`
	Location           *geo.Point   `json:"location,omitempty"`
	LastDonationAt     *time.Time   `json:"last_donation_at,omitempty"`
	Availability       Availability `json:"availability"`
	EmergencyAvailable bool         `json:"emergency_available"`
}

// InCooldown reports whether the donor donated less than CooldownPeriod before now.
func (d Donor) InCooldown(now time.Time) bool {
	if d.LastDonationAt == nil {
		return false
	}
	return now.Sub(*d.LastDonationAt) < CooldownPeriod
}

// RoutinelyAvailable is false for emergency-only donors who have not opted in to emergencies.
func (d Donor) RoutinelyAvailable() bool {
	return d.Availability != AvailabilityEmergencyOnly || d.EmergencyAvailable
}

// HospitalContact is what a donor sees after accepting a request.
type HospitalContact struct {
	ID       id.HospitalID `json:"id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone"`
	Address  string        `json:"address"`
	Location *geo.Point    `json:"location,omitempty"`
}
