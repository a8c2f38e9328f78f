package websocket

import (
	"sort"
	"sync"
)

// Registry maps each user to the set of their live connections. A user
// is online iff the set is non-empty; empty sets are never kept.
type Registry struct {
	// userConnections maps user ID to their live clients keyed by client ID
	userConnections map[uint]map[string]*Client

	mu sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		userConnections: make(map[uint]map[string]*Client),
	}
}

// Add registers client under userID. Adding the same client twice is a
// no-op and returns false.
func (r *Registry) Add(userID uint, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.userConnections[userID]
	if !ok {
		conns = make(map[string]*Client)
		r.userConnections[userID] = conns
	}
	if _, exists := conns[client.ID()]; exists {
		return false
	}
	conns[client.ID()] = client
	return true
}

// Remove drops client from userID's set. It reports whether this call
// removed the user's last connection. Removing an unknown client is a
// no-op.
func (r *Registry) Remove(userID uint, client *Client) (wasLastConnection bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.userConnections[userID]
	if !ok {
		return false
	}
	if _, exists := conns[client.ID()]; !exists {
		return false
	}
	delete(conns, client.ID())
	if len(conns) == 0 {
		delete(r.userConnections, userID)
		return true
	}
	return false
}

// LiveHandlesFor returns a copy of userID's live clients.
func (r *Registry) LiveHandlesFor(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.userConnections[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// AllHandlesExcept returns a copy of every live client not owned by userID.
func (r *Registry) AllHandlesExcept(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for uid, conns := range r.userConnections {
		if uid == userID {
			continue
		}
		for _, c := range conns {
			out = append(out, c)
		}
	}
	return out
}

// All returns a copy of every live client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for _, conns := range r.userConnections {
		for _, c := range conns {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConnections[userID]) > 0
}

// OnlineUsers returns the ids of all online users in ascending order.
func (r *Registry) OnlineUsers() []uint {
	r.mu.RLock()
	users := make([]uint, 0, len(r.userConnections))
	for uid := range r.userConnections {
		users = append(users, uid)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConnections)
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conns := range r.userConnections {
		n += len(conns)
	}
	return n
}
