// Package eligibility decides which donors may be notified about a request.
//
// The commitment check here is advisory: it reads a snapshot that can be stale by the
// time a donor responds. The authoritative check happens when the response is written.
package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"bloodlink/internal/bloodrequest/disaster"
	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/requestcontext"
)

// DefaultDisasterMinRadiusKm is the radius floor applied while disaster mode is on.
const DefaultDisasterMinRadiusKm = 100.0

// DonorLister reads approved donors from the user directory.
type DonorLister interface {
	ListDonors(ctx context.Context) ([]models.Donor, error)
}

// CommitmentReader reports which donors currently hold an accepted response on an
// open request, keyed by donor.
type CommitmentReader interface {
	ActiveCommitments(ctx context.Context) (map[id.DonorID]id.RequestID, error)
}

// Query describes one discovery pass.
type Query struct {
	BloodType models.BloodType
	Origin    *geo.Point
	RadiusKm  float64
	// ExcludeRequestID ignores commitments held on the request being matched.
	ExcludeRequestID id.RequestID
}

// Exclusion names the first check a donor failed.
type Exclusion string

const (
	Included             Exclusion = ""
	ExcludedIncomplete   Exclusion = "incomplete_profile"
	ExcludedIncompatible Exclusion = "incompatible"
	ExcludedCommitted    Exclusion = "committed"
	ExcludedCooldown     Exclusion = "cooldown"
	ExcludedAvailability Exclusion = "availability"
	ExcludedOutOfRange   Exclusion = "out_of_range"
)

type Filter struct {
	donors              DonorLister
	commitments         CommitmentReader
	override            disaster.Override
	disasterMinRadiusKm float64
	logger              *slog.Logger
}

type Option func(*Filter)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

func WithDisasterMinRadius(km float64) Option {
	return func(f *Filter) {
		if km > 0 {
			f.disasterMinRadiusKm = km
		}
	}
}

func New(donors DonorLister, commitments CommitmentReader, override disaster.Override, opts ...Option) *Filter {
	f := &Filter{
		donors:              donors,
		commitments:         commitments,
		override:            override,
		disasterMinRadiusKm: DefaultDisasterMinRadiusKm,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.override == nil {
		f.override = disaster.NewSwitch(false)
	}
	return f
}

// EffectiveRadius applies the disaster floor to radiusKm.
func (f *Filter) EffectiveRadius(radiusKm float64, disasterOn bool) float64 {
	if disasterOn {
		return max(radiusKm, f.disasterMinRadiusKm)
	}
	return radiusKm
}

// FindEligible returns the donors passing every check for q. A query without an
// origin matches nobody. The result is in directory order.
func (f *Filter) FindEligible(ctx context.Context, q Query) ([]models.Donor, error) {
	if q.Origin == nil {
		f.logger.InfoContext(ctx, "eligibility skipped, request has no origin",
			"blood_type", q.BloodType,
		)
		return nil, nil
	}

	donors, err := f.donors.ListDonors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	committed, err := f.commitments.ActiveCommitments(ctx)
	if err != nil {
		return nil, fmt.Errorf("read active commitments: %w", err)
	}

	c := check{
		query:      q,
		now:        requestcontext.Now(ctx),
		disasterOn: f.override.Active(ctx),
		committed:  committed,
	}
	c.radiusKm = f.EffectiveRadius(q.RadiusKm, c.disasterOn)

	var eligible []models.Donor
	excluded := make(map[Exclusion]int)
	for _, d := range donors {
		if reason := c.evaluate(d); reason != Included {
			excluded[reason]++
			continue
		}
		eligible = append(eligible, d)
	}

	f.logger.DebugContext(ctx, "eligibility computed",
		"blood_type", q.BloodType,
		"radius_km", c.radiusKm,
		"disaster", c.disasterOn,
		"candidates", len(donors),
		"eligible", len(eligible),
		"excluded", excluded,
	)
	return eligible, nil
}

type check struct {
	query      Query
	now        time.Time
	disasterOn bool
	committed  map[id.DonorID]id.RequestID
	radiusKm   float64
}

// evaluate runs the checks in order and stops at the first failure.
func (c check) evaluate(d models.Donor) Exclusion {
	if d.Location == nil || d.BloodType == nil {
		return ExcludedIncomplete
	}
	if !models.CanDonate(*d.BloodType, c.query.BloodType) {
		return ExcludedIncompatible
	}
	if reqID, ok := c.committed[d.ID]; ok && reqID != c.query.ExcludeRequestID {
		return ExcludedCommitted
	}
	if !c.disasterOn && d.InCooldown(c.now) {
		return ExcludedCooldown
	}
	if !c.disasterOn && !d.RoutinelyAvailable() {
		return ExcludedAvailability
	}
	if c.query.Origin.DistanceTo(*d.Location) > c.radiusKm {
		return ExcludedOutOfRange
	}
	return Included
}

// SortByDistance orders donors nearest-first from origin. Donors without a location
// sort last.
func SortByDistance(origin geo.Point, donors []models.Donor) {
	dist := func(d models.Donor) float64 {
		if d.Location == nil {
			return -1
		}
		return origin.DistanceTo(*d.Location)
	}
	slices.SortStableFunc(donors, func(a, b models.Donor) int {
		da, db := dist(a), dist(b)
		switch {
		case da < 0 && db < 0:
			return 0
		case da < 0:
			return 1
		case db < 0:
			return -1
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
}

// IDs projects donors to their identifiers.
func IDs(donors []models.Donor) []id.DonorID {
	out := make([]id.DonorID, 0, len(donors))
	for _, d := range donors {
		out = append(out, d.ID)
	}
	return out
}
