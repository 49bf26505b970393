// Package registry owns the set of connected players. It is the one
// piece of shared mutable state in the server: receive loops, the
// round loop and the bot driver all reach players through it.
package registry

import (
	"errors"
	"sync"

	"github.com/textordeath/server/internal/player"
)

var ErrServerFull = errors.New("server full")
var ErrDuplicateID = errors.New("duplicate player id")

// Registry is a capacity-bounded, join-ordered player set. Membership
// changes and snapshots are mutually exclusive, so a broadcast always
// sees a consistent point in time.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	players  map[string]*player.Player
	order    []string
}

func New(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		players:  make(map[string]*player.Player),
	}
}

func (r *Registry) Add(p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) >= r.capacity {
		return ErrServerFull
	}
	if _, exists := r.players[p.ID]; exists {
		return ErrDuplicateID
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Remove deletes and returns the player, if present.
func (r *Registry) Remove(id string) (*player.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

func (r *Registry) Get(id string) (*player.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// Snapshot returns the players in join order. The slice is stable for
// one broadcast; the players themselves guard their own fields.
func (r *Registry) Snapshot() []*player.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*player.Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// ActiveCount counts players not yet eliminated.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.players {
		if p.State() != player.StateEliminated {
			n++
		}
	}
	return n
}

func (r *Registry) Capacity() int {
	return r.capacity
}
