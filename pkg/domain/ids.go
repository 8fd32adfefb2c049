// Package domain holds typed identifiers shared across modules.
//
// Each identifier wraps a UUID in its own named type so a donor ID can never be passed
// where a request ID is expected. Construct them from external input with the Parse
// functions, which reject empty, malformed and nil UUIDs at the trust boundary.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

type (
	RequestID  uuid.UUID
	DonorID    uuid.UUID
	HospitalID uuid.UUID
)

func NewRequestID() RequestID { return RequestID(uuid.New()) }

func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DonorID) String() string { return uuid.UUID(id).String() }
func (id DonorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id HospitalID) String() string { return uuid.UUID(id).String() }
func (id HospitalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request ID")
	return RequestID(u), err
}

func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor ID")
	return DonorID(u), err
}

func ParseHospitalID(s string) (HospitalID, error) {
	u, err := parseUUID(s, "hospital ID")
	return HospitalID(u), err
}

// maxIDLength bounds input before it reaches the UUID parser. The longest accepted
// form is the urn:uuid: prefixed one.
const maxIDLength = 45

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
