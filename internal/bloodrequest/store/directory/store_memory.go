// Package directory is the read side of the user-management collaborator: donors and
// hospital contacts, plus the donation-history write made on fulfilment.
package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory holds donors and hospitals for development and tests.
type InMemory struct {
	mu        sync.RWMutex
	donors    map[id.DonorID]*models.Donor
	order     []id.DonorID
	hospitals map[id.HospitalID]*models.HospitalContact
	donations map[id.DonorID][]Donation
}

// Donation is one entry of a donor's donation history.
type Donation struct {
	DonorID   id.DonorID
	RequestID id.RequestID
	DonatedAt time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		donors:    make(map[id.DonorID]*models.Donor),
		hospitals: make(map[id.HospitalID]*models.HospitalContact),
		donations: make(map[id.DonorID][]Donation),
	}
}

// PutDonor inserts or replaces a donor, keeping insertion order for listing.
func (s *InMemory) PutDonor(_ context.Context, d models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.donors[d.ID] = cloneDonor(&d)
	return nil
}

func (s *InMemory) PutHospital(_ context.Context, h models.HospitalContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := h
	if h.Location != nil {
		loc := *h.Location
		cp.Location = &loc
	}
	s.hospitals[h.ID] = &cp
	return nil
}

// ListDonors returns every donor with a location, in insertion order.
func (s *InMemory) ListDonors(_ context.Context) ([]models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Donor, 0, len(s.order))
	for _, donorID := range s.order {
		d := s.donors[donorID]
		if d.Location == nil {
			continue
		}
		out = append(out, *cloneDonor(d))
	}
	return out, nil
}

func (s *InMemory) FindByID(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[donorID]
	if !ok {
		return nil, fmt.Errorf("donor not found: %w", sentinel.ErrNotFound)
	}
	return cloneDonor(d), nil
}

func (s *InMemory) FindContact(_ context.Context, hospitalID id.HospitalID) (*models.HospitalContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[hospitalID]
	if !ok {
		return nil, fmt.Errorf("hospital not found: %w", sentinel.ErrNotFound)
	}
	cp := *h
	return &cp, nil
}

// RecordDonation appends to the donor's history once per request and moves the
// last-donation marker forward.
func (s *InMemory) RecordDonation(_ context.Context, donorID id.DonorID, requestID id.RequestID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[donorID]
	if !ok {
		return fmt.Errorf("donor not found: %w", sentinel.ErrNotFound)
	}
	history := s.donations[donorID]
	if slices.ContainsFunc(history, func(x Donation) bool { return x.RequestID == requestID }) {
		return nil
	}
	s.donations[donorID] = append(history, Donation{DonorID: donorID, RequestID: requestID, DonatedAt: at})
	if d.LastDonationAt == nil || at.After(*d.LastDonationAt) {
		t := at
		d.LastDonationAt = &t
	}
	return nil
}

// Donations returns the donor's history, oldest first.
func (s *InMemory) Donations(_ context.Context, donorID id.DonorID) ([]Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.donations[donorID]), nil
}

func cloneDonor(d *models.Donor) *models.Donor {
	cp := *d
	if d.BloodType != nil {
		bt := *d.BloodType
		cp.BloodType = &bt
	}
	if d.Location != nil {
		loc := *d.Location
		cp.Location = &loc
	}
	if d.LastDonationAt != nil {
		t := *d.LastDonationAt
		cp.LastDonationAt = &t
	}
	return &cp
}
