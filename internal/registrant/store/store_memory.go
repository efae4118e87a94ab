package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vouch/internal/registrant"
	"vouch/pkg/requestcontext"
)

// MemoryStore keeps registrants in process. It is the default when no
// database is configured and the workhorse for unit tests. A single RWMutex
// is enough at this scale and gives Update its per-record atomicity for
// free.
type MemoryStore struct {
	mu          sync.RWMutex
	byID        map[uuid.UUID]*registrant.Registrant
	byEmail     map[string]uuid.UUID
	byApplicant map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory registrant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:        make(map[uuid.UUID]*registrant.Registrant),
		byEmail:     make(map[string]uuid.UUID),
		byApplicant: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec *registrant.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(rec.Email)
	if _, exists := s.byEmail[email]; exists {
		return ErrDuplicateEmail
	}

	cp := *rec
	s.byID[cp.ID] = &cp
	s.byEmail[email] = cp.ID
	if cp.Verification.ApplicantID != "" {
		s.byApplicant[cp.Verification.ApplicantID] = cp.ID
	}
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*registrant.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*registrant.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) FindByApplicantID(_ context.Context, applicantID string) (*registrant.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byApplicant[applicantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn func(*registrant.Registrant) error) (*registrant.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Apply to a working copy so a failing fn leaves the record untouched.
	work := *rec
	if err := fn(&work); err != nil {
		return nil, err
	}

	// ApplicantID is immutable once set.
	if rec.Verification.ApplicantID != "" {
		work.Verification.ApplicantID = rec.Verification.ApplicantID
	} else if work.Verification.ApplicantID != "" {
		s.byApplicant[work.Verification.ApplicantID] = id
	}

	work.UpdatedAt = requestcontext.Now(ctx)
	s.byID[id] = &work

	cp := work
	return &cp, nil
}

func (s *MemoryStore) AttachApplicantID(ctx context.Context, id uuid.UUID, applicantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return "", ErrNotFound
	}
	if existing := rec.Verification.ApplicantID; existing != "" {
		return existing, nil
	}

	work := *rec
	work.Verification.ApplicantID = applicantID
	work.UpdatedAt = requestcontext.Now(ctx)
	s.byID[id] = &work
	s.byApplicant[applicantID] = id
	return applicantID, nil
}
