package pool

import "sync"

// Registry tracks which single pool a user currently occupies, independent
// of any one pairing queue. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[string]string // userID -> pool name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]string),
	}
}

// CanJoinPool reports whether a user may join the given pool: true when they
// are unregistered or already registered to that same pool.
func (r *Registry) CanJoinPool(userID, pool string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	current, ok := r.users[userID]
	return !ok || current == pool
}

// Register records the user's pool. Re-registering overwrites (last write
// wins).
func (r *Registry) Register(userID, pool string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = pool
}

// Unregister removes the user from whichever pool they occupy.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

// CurrentPool returns the user's pool name, if any.
func (r *Registry) CurrentPool(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.users[userID]
	return pool, ok
}

// InAnyPool reports whether the user is registered anywhere.
func (r *Registry) InAnyPool(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// UserCountInPool returns the number of users registered to a pool.
func (r *Registry) UserCountInPool(pool string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, p := range r.users {
		if p == pool {
			count++
		}
	}
	return count
}

// TotalUserCount returns the number of users registered across all pools.
func (r *Registry) TotalUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
