package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
)

// Writer is implemented by both directory stores.
type Writer interface {
	PutDonor(ctx context.Context, d models.Donor) error
	PutHospital(ctx context.Context, h models.HospitalContact) error
}

// SeedDemo loads one hospital and a ring of donors around it, one per blood type, at
// increasing distances. It lets a fresh in-memory deployment be exercised end to end.
func SeedDemo(ctx context.Context, w Writer) (models.HospitalContact, []models.Donor, error) {
	origin := geo.Point{Lat: 51.5072, Lng: -0.1276}
	hospital := models.HospitalContact{
		ID:       id.HospitalID(uuid.New()),
		Name:     "St Thomas' Hospital",
		Email:    "bloodbank@example.org",
		Phone:    "+44 20 7188 7188",
		Address:  "Westminster Bridge Rd, London SE1 7EH",
		Location: &origin,
	}
	if err := w.PutHospital(ctx, hospital); err != nil {
		return models.HospitalContact{}, nil, err
	}

	donors := make([]models.Donor, 0, len(models.AllBloodTypes))
	for i, bt := range models.AllBloodTypes {
		// 5 km steps north: 5, 10, ... 40 km
		loc := geo.Point{Lat: origin.Lat + float64(i+1)*5/111.195, Lng: origin.Lng}
		d := models.Donor{
			ID:           id.DonorID(uuid.New()),
			Name:         fmt.Sprintf("Demo donor %s", bt),
			Email:        fmt.Sprintf("donor%d@example.org", i+1),
			BloodType:    &bt,
			Location:     &loc,
			Availability: models.AvailabilityNormal,
		}
		if err := w.PutDonor(ctx, d); err != nil {
			return models.HospitalContact{}, nil, err
		}
		donors = append(donors, d)
	}
	return hospital, donors, nil
}
