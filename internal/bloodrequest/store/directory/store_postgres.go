package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/sentinel"
	txcontext "bloodlink/pkg/platform/tx"
)

// Postgres reads donors and hospitals from the shared user tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const donorColumns = `id, name, email, blood_type, latitude, longitude, last_donation_at, availability, emergency_available`

// ListDonors returns approved donors that have a location.
func (s *Postgres) ListDonors(ctx context.Context) ([]models.Donor, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, `
		SELECT `+donorColumns+` FROM donors
		WHERE approved AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	var out []models.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return out, nil
}

func (s *Postgres) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	row := txcontext.Use(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+donorColumns+` FROM donors WHERE id = $1`, uuid.UUID(donorID))
	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("donor not found: %w", sentinel.ErrNotFound)
	}
	return d, err
}

func (s *Postgres) FindContact(ctx context.Context, hospitalID id.HospitalID) (*models.HospitalContact, error) {
	var (
		h        models.HospitalContact
		rawID    uuid.UUID
		lat, lng sql.NullFloat64
	)
	err := txcontext.Use(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, name, email, phone, address, latitude, longitude
		FROM hospitals WHERE id = $1`, uuid.UUID(hospitalID),
	).Scan(&rawID, &h.Name, &h.Email, &h.Phone, &h.Address, &lat, &lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hospital not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find hospital: %w", err)
	}
	h.ID = id.HospitalID(rawID)
	if lat.Valid && lng.Valid {
		h.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &h, nil
}

// RecordDonation is idempotent per donor and request.
func (s *Postgres) RecordDonation(ctx context.Context, donorID id.DonorID, requestID id.RequestID, at time.Time) error {
	return txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		q := txcontext.Use(ctx, s.db)
		res, err := q.ExecContext(ctx, `
			INSERT INTO donations (donor_id, request_id, donated_at) VALUES ($1, $2, $3)
			ON CONFLICT (donor_id, request_id) DO NOTHING`,
			uuid.UUID(donorID), uuid.UUID(requestID), at,
		)
		if err != nil {
			return fmt.Errorf("insert donation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		_, err = q.ExecContext(ctx, `
			UPDATE donors SET last_donation_at = GREATEST(COALESCE(last_donation_at, $2), $2)
			WHERE id = $1`,
			uuid.UUID(donorID), at,
		)
		if err != nil {
			return fmt.Errorf("update last donation: %w", err)
		}
		return nil
	})
}

// PutDonor upserts a donor. Used by seeding and tests; profile edits belong to the
// user-management service.
func (s *Postgres) PutDonor(ctx context.Context, d models.Donor) error {
	var bloodType sql.NullString
	if d.BloodType != nil {
		bloodType = sql.NullString{String: string(*d.BloodType), Valid: true}
	}
	var lat, lng sql.NullFloat64
	if d.Location != nil {
		lat = sql.NullFloat64{Float64: d.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: d.Location.Lng, Valid: true}
	}
	var last sql.NullTime
	if d.LastDonationAt != nil {
		last = sql.NullTime{Time: *d.LastDonationAt, Valid: true}
	}
	availability := d.Availability
	if availability == "" {
		availability = models.AvailabilityNormal
	}
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, `
		INSERT INTO donors (id, name, email, blood_type, latitude, longitude, last_donation_at,
			availability, emergency_available, approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, blood_type = EXCLUDED.blood_type,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			last_donation_at = EXCLUDED.last_donation_at, availability = EXCLUDED.availability,
			emergency_available = EXCLUDED.emergency_available`,
		uuid.UUID(d.ID), d.Name, d.Email, bloodType, lat, lng, last, string(availability), d.EmergencyAvailable,
	)
	if err != nil {
		return fmt.Errorf("upsert donor: %w", err)
	}
	return nil
}

func (s *Postgres) PutHospital(ctx context.Context, h models.HospitalContact) error {
	var lat, lng sql.NullFloat64
	if h.Location != nil {
		lat = sql.NullFloat64{Float64: h.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: h.Location.Lng, Valid: true}
	}
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, `
		INSERT INTO hospitals (id, name, email, phone, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			address = EXCLUDED.address, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
		uuid.UUID(h.ID), h.Name, h.Email, h.Phone, h.Address, lat, lng,
	)
	if err != nil {
		return fmt.Errorf("upsert hospital: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var (
		d            models.Donor
		rawID        uuid.UUID
		bloodType    sql.NullString
		lat, lng     sql.NullFloat64
		last         sql.NullTime
		availability string
	)
	if err := row.Scan(&rawID, &d.Name, &d.Email, &bloodType, &lat, &lng, &last, &availability, &d.EmergencyAvailable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	d.ID = id.DonorID(rawID)
	if bloodType.Valid {
		if bt, err := models.ParseBloodType(bloodType.String); err == nil {
			d.BloodType = &bt
		}
	}
	if lat.Valid && lng.Valid {
		d.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if last.Valid {
		t := last.Time
		d.LastDonationAt = &t
	}
	d.Availability = models.Availability(availability)
	return &d, nil
}
