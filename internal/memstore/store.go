// Package memstore is an in-process implementation of every storage
// contract.  A single mutex serialises all operations, which gives the same
// uniqueness and atomicity guarantees as the MySQL schema: of two
// conflicting writes exactly one wins.  It backs DB_DRIVER=memory and the
// service tests.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
)

// Store holds every table in maps keyed by primary key.
type Store struct {
	mu  sync.Mutex
	seq uint64
	now func() time.Time

	accounts    map[uint64]model.Account
	profiles    map[uint64]model.Profile
	tokens      map[string]model.RefreshToken
	courses     map[uint64]model.Course
	modules     map[uint64]model.Module
	lessons     map[uint64]model.Lesson
	enrollments map[uint64]model.Enrollment
	vehicles    map[uint64]model.Vehicle
	rides       map[uint64]model.Ride
	requests    map[uint64]model.RideRequest
	ratings     map[uint64]model.Rating
	workOrders  map[uint64]model.WorkOrder
	projects    map[uint64]model.Project
	tasks       map[uint64]model.Task

	// failProfile makes the next profile insert fail; used to prove that
	// account creation rolls back.
	failProfile error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		accounts:    map[uint64]model.Account{},
		profiles:    map[uint64]model.Profile{},
		tokens:      map[string]model.RefreshToken{},
		courses:     map[uint64]model.Course{},
		modules:     map[uint64]model.Module{},
		lessons:     map[uint64]model.Lesson{},
		enrollments: map[uint64]model.Enrollment{},
		vehicles:    map[uint64]model.Vehicle{},
		rides:       map[uint64]model.Ride{},
		requests:    map[uint64]model.RideRequest{},
		ratings:     map[uint64]model.Rating{},
		workOrders:  map[uint64]model.WorkOrder{},
		projects:    map[uint64]model.Project{},
		tasks:       map[uint64]model.Task{},
	}
}

// FailNextProfileInsert makes the next CreateWithProfile fail at the
// profile step with err.
func (s *Store) FailNextProfileInsert(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProfile = err
}

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

func dup(field string) error { return &repository.DuplicateKeyError{Field: field} }

// ---- Accounts ----

func (s *Store) CreateWithProfile(_ context.Context, a *model.Account, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(a.Email))
	for _, existing := range s.accounts {
		if existing.Email == email {
			return dup("email")
		}
	}
	// a failed profile insert leaves no account behind
	if err := s.failProfile; err != nil {
		s.failProfile = nil
		return err
	}
	now := s.now()
	a.ID = s.nextID()
	a.Email, a.IsActive, a.CreatedAt, a.UpdatedAt = email, true, now, now
	p.AccountID, p.UpdatedAt = a.ID, now
	s.accounts[a.ID] = *a
	s.profiles[a.ID] = *p
	return nil
}

func (s *Store) GetByID(_ context.Context, id uint64) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (s *Store) GetProfile(_ context.Context, accountID uint64) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[accountID]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[p.AccountID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.FullName, cur.Phone, cur.Bio, cur.UpdatedAt = p.FullName, p.Phone, p.Bio, s.now()
	s.profiles[p.AccountID] = cur
	*p = cur
	return nil
}

func (s *Store) Deactivate(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsActive, a.UpdatedAt = false, s.now()
	s.accounts[id] = a
	s.revokeAllLocked(id)
	return nil
}

// ---- Refresh tokens ----

func (s *Store) StoreRefresh(_ context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; ok {
		return dup("token")
	}
	if _, ok := s.accounts[accountID]; !ok {
		return repository.ErrNotFound
	}
	s.tokens[tokenHash] = model.RefreshToken{
		ID:        s.nextID(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC(),
		CreatedAt: s.now(),
	}
	return nil
}

func (s *Store) FindRefresh(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *Store) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	now := s.now()
	t.RevokedAt = &now
	s.tokens[tokenHash] = t
	return nil
}

func (s *Store) RevokeAllForAccount(_ context.Context, accountID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeAllLocked(accountID)
	return nil
}

func (s *Store) revokeAllLocked(accountID uint64) {
	now := s.now()
	for h, t := range s.tokens {
		if t.AccountID == accountID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.tokens[h] = t
		}
	}
}
