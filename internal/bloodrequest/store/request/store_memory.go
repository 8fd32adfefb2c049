// Package request persists blood requests and enforces write-time invariants.
//
// Error contract for every store:
//   - ErrNotFound when the request does not exist
//   - ErrConflict when accepting would give a donor a second active commitment
//   - errors returned by a validate callback pass through unchanged
//   - wrapped errors for infrastructure failures
package request

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

// InMemoryStore keeps requests in process memory. Each request has its own lock, held
// across validate and mutate, so operations on different requests never wait on each
// other except for the short commitment-index section.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
	locks    map[id.RequestID]*sync.Mutex

	// commitMu is always taken after a request lock, never before.
	commitMu    sync.Mutex
	commitments map[id.DonorID]id.RequestID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		requests:    make(map[id.RequestID]*models.Request),
		locks:       make(map[id.RequestID]*sync.Mutex),
		commitments: make(map[id.DonorID]id.RequestID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return fmt.Errorf("request %s already exists: %w", req.ID, sentinel.ErrConflict)
	}
	s.requests[req.ID] = req.Clone()
	s.locks[req.ID] = &sync.Mutex{}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("request not found: %w", sentinel.ErrNotFound)
	}
	return req.Clone(), nil
}

// Execute validates and mutates a copy of the request under its lock and stores the
// copy only if both succeed and no donor it newly commits is committed elsewhere.
func (s *InMemoryStore) Execute(
	ctx context.Context,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	s.mu.RLock()
	lock, ok := s.locks[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("request not found: %w", sentinel.ErrNotFound)
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	current := s.requests[requestID]
	s.mu.RUnlock()

	work := current.Clone()
	if err := validate(work); err != nil {
		return nil, err
	}
	mutate(work)

	before := current.CommittedDonors()
	after := work.CommittedDonors()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for _, donorID := range after {
		if slices.Contains(before, donorID) {
			continue
		}
		if other, held := s.commitments[donorID]; held && other != requestID {
			return nil, fmt.Errorf("donor %s already committed to request %s: %w", donorID, other, sentinel.ErrConflict)
		}
	}
	for _, donorID := range before {
		if !slices.Contains(after, donorID) && s.commitments[donorID] == requestID {
			delete(s.commitments, donorID)
		}
	}
	for _, donorID := range after {
		s.commitments[donorID] = requestID
	}

	s.mu.Lock()
	s.requests[requestID] = work
	s.mu.Unlock()

	return work.Clone(), nil
}

// ListEscalationCandidates returns pending requests below the last stage whose current
// stage started at least dwell before now, oldest first. Callers re-check the guards
// inside Execute.
func (s *InMemoryStore) ListEscalationCandidates(_ context.Context, now time.Time, dwell time.Duration) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := now.Add(-dwell)
	var out []*models.Request
	for _, req := range s.requests {
		if !req.IsPending() || req.Stage >= models.MaxStage || req.StageChangedAt.After(cutoff) {
			continue
		}
		out = append(out, req.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Request) int {
		return a.StageChangedAt.Compare(b.StageChangedAt)
	})
	return out, nil
}

// ActiveCommitments returns a snapshot of the donor to request commitment index.
func (s *InMemoryStore) ActiveCommitments(_ context.Context) (map[id.DonorID]id.RequestID, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	out := make(map[id.DonorID]id.RequestID, len(s.commitments))
	for d, r := range s.commitments {
		out[d] = r
	}
	return out, nil
}

// ActiveCommitment reports the open request the donor is committed to, if any.
func (s *InMemoryStore) ActiveCommitment(_ context.Context, donorID id.DonorID) (id.RequestID, bool, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	reqID, ok := s.commitments[donorID]
	return reqID, ok, nil
}
