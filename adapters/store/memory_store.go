package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/tollgate/core"
)

type memoryRecord struct {
	subject   string
	expiresAt time.Time
}

// MemoryStore is an in-memory session store for tests and single-instance development.
// Records are only visible to the current process.
type MemoryStore struct {
	records map[string]memoryRecord
	idleTTL time.Duration
	prefix  string
	now     func() time.Time
	mu      sync.Mutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(idleTTL time.Duration, opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		idleTTL: normalizeIdleTTL(idleTTL),
		prefix:  o.prefix,
		now:     o.now,
	}
}

func (s *MemoryStore) key(tokenID string) string {
	return s.prefix + tokenID
}

// IdleTTL returns the idle window applied on Start and Touch
func (s *MemoryStore) IdleTTL() time.Duration {
	return s.idleTTL
}

// Start writes the session record with a fresh idle TTL
func (s *MemoryStore) Start(ctx context.Context, tokenID, subject string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.key(tokenID)] = memoryRecord{
		subject:   subject,
		expiresAt: s.now().Add(s.idleTTL),
	}
	return nil
}

// Touch resets the idle TTL of a live record
func (s *MemoryStore) Touch(ctx context.Context, tokenID string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tokenID)
	now := s.now()

	rec, ok := s.records[key]
	if !ok {
		return false, nil
	}
	if !now.Before(rec.expiresAt) {
		delete(s.records, key)
		return false, nil
	}

	rec.expiresAt = now.Add(s.idleTTL)
	s.records[key] = rec
	return true, nil
}

// End deletes the session record
func (s *MemoryStore) End(ctx context.Context, tokenID string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, s.key(tokenID))
	return nil
}

// Lookup reads a live record without refreshing it
func (s *MemoryStore) Lookup(ctx context.Context, tokenID string) (core.Session, bool, error) {
	if err := checkContext(ctx); err != nil {
		return core.Session{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[s.key(tokenID)]
	if !ok {
		return core.Session{}, false, nil
	}
	remaining := rec.expiresAt.Sub(s.now())
	if remaining <= 0 {
		delete(s.records, s.key(tokenID))
		return core.Session{}, false, nil
	}

	return core.Session{TokenID: tokenID, Subject: rec.subject, IdleTTL: remaining}, true, nil
}

// Sweep removes idle-expired records and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of records held, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Clear removes all records
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]memoryRecord)
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}
