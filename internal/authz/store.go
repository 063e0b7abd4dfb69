// Package authz answers yes/no authorization questions for the current
// session without any network round-trip. Decisions are fail-closed: absence
// of data is never interpreted as access.
package authz

import (
	"sync"

	"github.com/meridian-logistics/backoffice/internal/resources"
)

// Store holds the current identity and its permission grants. It is safe for
// concurrent readers; Refresh replaces the state wholesale on login, logout
// or role change.
type Store struct {
	mu     sync.RWMutex
	ident  *Identity
	grants Grants
}

// NewStore returns an empty store. Until Refresh is called every check
// denies.
func NewStore() *Store {
	return &Store{}
}

// Refresh swaps in a new identity and grant set. Passing a nil identity
// clears the session (logout).
func (s *Store) Refresh(ident *Identity, grants Grants) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident = ident
	s.grants = grants
}

// Identity returns the current identity, or nil when no session is loaded.
func (s *Store) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ident == nil {
		return nil
	}
	ident := *s.ident
	return &ident
}

// Can reports whether the current identity may perform op on the resource.
// The sentinel resource always authorizes; the super role authorizes
// everything. Missing identity, missing grant or an unrecognized operation
// all deny.
func (s *Store) Can(r resources.Resource, op Op) bool {
	if r == resources.None {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ident == nil {
		return false
	}
	if s.ident.Super {
		return true
	}
	if !op.Valid() {
		return false
	}
	mask, ok := s.grants[r]
	if !ok {
		return false
	}
	return mask.Has(op)
}

// CanAny reports whether any of the checks authorizes. The whole list is
// scanned; a denial earlier in the list never shadows a grant later in it.
// An empty list denies.
func (s *Store) CanAny(checks ...Check) bool {
	for _, c := range checks {
		if s.Can(c.Resource, c.Operation) {
			return true
		}
	}
	return false
}
