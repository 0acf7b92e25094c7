// Package share keeps short-lived plan snapshots addressable by a random ID.
package share

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// ErrEmptyPayload is returned when Put is given nothing to store.
var ErrEmptyPayload = errors.New("empty share payload")

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Store holds payloads until their TTL runs out. Expired entries are dropped
// on read and by the sweeper.
type Store struct {
	mu    sync.Mutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		items: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put stores a copy of payload and returns its ID and expiry time.
func (s *Store) Put(payload []byte) (string, time.Time, error) {
	if len(payload) == 0 {
		return "", time.Time{}, ErrEmptyPayload
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	expiresAt := s.now().Add(s.ttl)
	s.items[id] = entry{payload: append([]byte(nil), payload...), expiresAt: expiresAt}
	return id, expiresAt, nil
}

// Get returns the payload stored under id, if it has not expired.
func (s *Store) Get(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.items, id)
		return nil, false
	}
	return e.payload, true
}

// Len returns the number of stored entries, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.items {
		if !now.Before(e.expiresAt) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				klog.V(2).InfoS("share entries expired", "removed", n)
			}
		}
	}
}
