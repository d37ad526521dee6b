// Package registry holds the live table of connected sessions: one entry per
// remote address, carrying that connection's outbound handle and its current
// session token. It is the only structure in the server mutated from multiple
// goroutines and is guarded by a single mutex over the whole map.
package registry

import (
	"sync"

	"github.com/akruglov/chatline/internal/common"
)

// Peer is the outbound side of a connection. Send must be best-effort and
// non-blocking: it reports false when the frame could not be queued.
type Peer interface {
	Send(frame []byte) bool
	Close()
}

type entry struct {
	peer  Peer
	token string
}

// Registry maps remote addresses to connection entries. All mutations and
// the iteration used for broadcast happen inside one critical section; there
// are no per-entry locks. Entry counts are small (interactive chat), so the
// simplicity wins over fan-out latency.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Insert creates the entry for addr with an empty token
// (connected-but-unauthenticated). Inserting an address that is already
// present returns common.ErrAlreadyExists.
func (r *Registry) Insert(addr string, p Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[addr]; ok {
		return common.ErrAlreadyExists
	}
	r.entries[addr] = &entry{peer: p}
	return nil
}

// SetToken updates the current session token for addr. Called once per
// successful auth exchange on that connection.
func (r *Registry) SetToken(addr, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[addr]
	if !ok {
		return common.ErrNotFound
	}
	e.token = token
	return nil
}

// Remove deletes the entry for addr and reports whether it existed.
func (r *Registry) Remove(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[addr]
	delete(r.entries, addr)
	return ok
}

// ForEach runs fn for every entry inside one critical section, so no insert
// or removal can interleave with the iteration. fn must not block: queue
// frames via Peer.Send, never perform network I/O.
func (r *Registry) ForEach(fn func(addr string, p Peer, token string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for addr, e := range r.entries {
		fn(addr, e.peer, e.token)
	}
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
