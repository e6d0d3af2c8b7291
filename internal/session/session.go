// Package session holds the bundle being edited for one transaction. Every
// slot is replaced atomically and readers always get a consistent copy.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

// ErrNotFound is returned for unknown session ids
var ErrNotFound = errors.New("session not found")

// Session is one transaction's bundle
type Session struct {
	id string

	mu      sync.RWMutex
	bundle  records.Bundle
	updated time.Time
}

func newSession(id string) *Session {
	return &Session{id: id, updated: time.Now()}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the bundle. Records hold only strings, so the
// copy shares nothing with the session.
func (s *Session) Snapshot() records.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// UpdatedAt returns the time of the last change
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// SetPerson replaces the seller or buyer record
func (s *Session) SetPerson(role records.Role, rec records.PersonRecord) error {
	return s.Update(func(b *records.Bundle) error {
		switch role {
		case records.RoleSeller:
			b.Seller = rec
		case records.RoleBuyer:
			b.Buyer = rec
		default:
			return fmt.Errorf("role %q does not hold a person", role)
		}
		return nil
	})
}

// SetVehicle replaces the vehicle record
func (s *Session) SetVehicle(rec records.VehicleRecord) {
	_ = s.Update(func(b *records.Bundle) error {
		b.Vehicle = rec
		return nil
	})
}

// SetField sets one field by its JSON key, for manual corrections
func (s *Session) SetField(role records.Role, key, value string) error {
	return s.Update(func(b *records.Bundle) error {
		switch role {
		case records.RoleSeller:
			return b.Seller.Set(key, value)
		case records.RoleBuyer:
			return b.Buyer.Set(key, value)
		case records.RoleVehicle:
			return b.Vehicle.Set(key, value)
		default:
			_, err := records.ParseRole(string(role))
			return err
		}
	})
}

// Replace swaps the whole bundle, as when loading from history or a share link
func (s *Session) Replace(b records.Bundle) {
	_ = s.Update(func(cur *records.Bundle) error {
		*cur = b
		return nil
	})
}

// Reset clears every record
func (s *Session) Reset() {
	s.Replace(records.Bundle{})
}

// Update applies fn to a working copy under the write lock. The copy is
// stored only when fn succeeds.
func (s *Session) Update(fn func(b *records.Bundle) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.bundle
	if err := fn(&working); err != nil {
		return err
	}
	s.bundle = working
	s.updated = time.Now()
	return nil
}

// Store keeps sessions by id
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create opens a session with a fresh id
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString())
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetOrCreate returns the session with id, or a new one when id is empty
// or unknown
func (st *Store) GetOrCreate(id string) *Session {
	if id != "" {
		if s, err := st.Get(id); err == nil {
			return s
		}
	}
	return st.Create()
}

// Delete drops a session
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of open sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Prune drops sessions not updated within maxIdle and returns how many
func (st *Store) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()
	pruned := 0
	for id, s := range st.sessions {
		if s.UpdatedAt().Before(cutoff) {
			delete(st.sessions, id)
			pruned++
		}
	}
	return pruned
}
