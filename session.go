package voxassist

import (
	"sync"
	"time"
)

// SessionRegistry tracks recently active users and enforces the global
// concurrency cap. Eviction is lazy: every access purges entries whose
// inactivity exceeds the timeout, so no background sweep is needed and
// the map stays bounded to recently active users.
//
// All reads and writes happen under one mutex guarding the whole map.
// The map is small and operations are O(active users), so correctness of
// the combined purge+check beats fine-grained locking here.
type SessionRegistry struct {
	mu       sync.Mutex
	entries  map[int64]time.Time
	capacity int
	timeout  time.Duration
	now      func() time.Time
}

// SessionOption configures a SessionRegistry.
type SessionOption func(*SessionRegistry)

// WithSessionClock injects the clock. Defaults to time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(r *SessionRegistry) { r.now = now }
}

// NewSessionRegistry creates a registry with the given concurrency cap and
// inactivity timeout.
func NewSessionRegistry(capacity int, timeout time.Duration, opts ...SessionOption) *SessionRegistry {
	r := &SessionRegistry{
		entries:  make(map[int64]time.Time),
		capacity: capacity,
		timeout:  timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Touch records or refreshes the user's last-activity time and purges any
// other entries whose inactivity exceeds the timeout.
func (r *SessionRegistry) Touch(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.entries[userID] = now
	r.purgeLocked(now)
}

// UnderCapacity returns true iff the number of non-expired sessions is
// strictly below the cap. Expired entries are purged first.
func (r *SessionRegistry) UnderCapacity() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())
	return len(r.entries) < r.capacity
}

// IsActive returns true iff the user has a non-expired session entry.
func (r *SessionRegistry) IsActive(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())
	_, ok := r.entries[userID]
	return ok
}

// ActiveCount returns the number of non-expired sessions.
func (r *SessionRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())
	return len(r.entries)
}

// purgeLocked drops entries idle longer than the timeout. Must be called
// with the mutex held.
func (r *SessionRegistry) purgeLocked(now time.Time) {
	for id, last := range r.entries {
		if now.Sub(last) > r.timeout {
			delete(r.entries, id)
		}
	}
}
