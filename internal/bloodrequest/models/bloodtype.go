package models

import (
	"strings"

	dErrors "bloodlink/pkg/domain-errors"
)

// BloodType is one of the eight ABO/Rh types.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// AllBloodTypes lists every supported type in a stable order.
var AllBloodTypes = []BloodType{
	BloodTypeAPos, BloodTypeANeg,
	BloodTypeBPos, BloodTypeBNeg,
	BloodTypeABPos, BloodTypeABNeg,
	BloodTypeOPos, BloodTypeONeg,
}

// donatesTo maps a donor type to the recipient types it can give red cells to.
var donatesTo = map[BloodType][]BloodType{
	BloodTypeONeg:  AllBloodTypes,
	BloodTypeOPos:  {BloodTypeOPos, BloodTypeAPos, BloodTypeBPos, BloodTypeABPos},
	BloodTypeANeg:  {BloodTypeANeg, BloodTypeAPos, BloodTypeABNeg, BloodTypeABPos},
	BloodTypeAPos:  {BloodTypeAPos, BloodTypeABPos},
	BloodTypeBNeg:  {BloodTypeBNeg, BloodTypeBPos, BloodTypeABNeg, BloodTypeABPos},
	BloodTypeBPos:  {BloodTypeBPos, BloodTypeABPos},
	BloodTypeABNeg: {BloodTypeABNeg, BloodTypeABPos},
	BloodTypeABPos: {BloodTypeABPos},
}

func (b BloodType) IsValid() bool {
	_, ok := donatesTo[b]
	return ok
}

func (b BloodType) String() string { return string(b) }

// ParseBloodType validates external input. Case and surrounding space are ignored.
func ParseBloodType(s string) (BloodType, error) {
	b := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown blood type")
	}
	return b, nil
}

// CanDonate reports whether a donor of type donor can give to a recipient of type recipient.
// Unknown types are never compatible.
func CanDonate(donor, recipient BloodType) bool {
	for _, r := range donatesTo[donor] {
		if r == recipient {
			return true
		}
	}
	return false
}

// CanReceiveFrom is CanDonate with the arguments in recipient-first order.
func CanReceiveFrom(recipient, donor BloodType) bool {
	return CanDonate(donor, recipient)
}

// CompatibleDonorTypes returns every donor type that can give to recipient.
func CompatibleDonorTypes(recipient BloodType) []BloodType {
	var out []BloodType
	for _, d := range AllBloodTypes {
		if CanDonate(d, recipient) {
			out = append(out, d)
		}
	}
	return out
}
