// Package relay tracks which user holds which live connection via the
// registry type, the single source of truth for presence.
package relay

import (
	"sort"
	"sync"
	"time"
)

// registry maps a user to its one active connection and the time of its last
// inbound traffic. The hub goroutine performs all mutation, so the mutex
// exists to keep read-only callers on other goroutines safe rather than to
// arbitrate writers.
type registry struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	lastSeen map[string]time.Time
}

func newRegistry() *registry {
	return &registry{
		clients:  make(map[string]*Client),
		lastSeen: make(map[string]time.Time),
	}
}

// register stores the client as the sole connection for its user and returns
// the connection it displaced, if any. The caller owns closing the displaced
// connection; last-writer-wins.
func (r *registry) register(c *Client, now time.Time) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[c.userID]
	r.clients[c.userID] = c
	r.lastSeen[c.userID] = now
	return prev
}

// unregister removes the user's entry only when the current occupant is
// exactly c, so a superseded connection's late cleanup cannot evict its
// successor. It reports whether the entry was removed.
func (r *registry) unregister(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[userID]; !ok || current != c {
		return false
	}
	delete(r.clients, userID)
	delete(r.lastSeen, userID)
	return true
}

// touch refreshes the user's liveness timestamp. Any inbound frame counts as
// liveness evidence, not just heartbeats.
func (r *registry) touch(userID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[userID]; ok {
		r.lastSeen[userID] = now
	}
}

func (r *registry) get(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[userID]
	return c, ok
}

// snapshot returns the ids of every registered user, sorted for stable
// output.
func (r *registry) snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// all returns the registered clients, for fan-out.
func (r *registry) all() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// stale returns the clients whose last inbound traffic is older than
// threshold.
func (r *registry) stale(now time.Time, threshold time.Duration) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for id, seen := range r.lastSeen {
		if now.Sub(seen) > threshold {
			if c, ok := r.clients[id]; ok {
				out = append(out, c)
			}
		}
	}
	return out
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
