package token

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is the shared revocation set consulted on every validation.
// Entries past their expiry are logically absent: IsRevoked must report false
// for them regardless of physical presence, and implementations may purge
// them at lookup time.
type RevocationStore interface {
	// Revoke inserts the jti until expiresAt. Idempotent; inserting an
	// already-present or already-expired jti is a no-op.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// IsRevoked reports whether the jti is currently revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore keeps revocation entries in a mutex-guarded map.
// Expired entries are purged lazily on lookup and in bulk via Purge.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore constructs an empty in-process store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !expiresAt.After(s.now()) {
		return nil
	}
	// Keep the later expiry when the same jti is revoked twice.
	if existing, ok := s.entries[jti]; ok && existing.After(expiresAt) {
		return nil
	}
	s.entries[jti] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(s.now()) {
		delete(s.entries, jti)
		return false, nil
	}
	return true, nil
}

// Purge removes all expired entries and returns how many were dropped.
func (s *MemoryRevocationStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	dropped := 0
	for jti, expiresAt := range s.entries {
		if !expiresAt.After(now) {
			delete(s.entries, jti)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of physical entries, expired or not.
func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
