package transport

import (
	"sync"

	"kvstore/internal/address"
)

// Fabric is a shared in-memory switchboard connecting Sim endpoints.
// It stands in for the discrete-event network emulator spec.md §1
// treats as an external collaborator, giving internal/peer's tests a
// way to run several peers against each other without real sockets.
type Fabric struct {
	mu    sync.Mutex
	nodes map[address.Address]*simQueue
}

type simQueue struct {
	mu      sync.Mutex
	pending [][]byte
}

// NewFabric creates an empty switchboard.
func NewFabric() *Fabric {
	return &Fabric{nodes: make(map[address.Address]*simQueue)}
}

// Register attaches a new Sim endpoint for addr and returns it. A
// second Register for the same address replaces the first.
func (f *Fabric) Register(addr address.Address) *Sim {
	q := &simQueue{}
	f.mu.Lock()
	f.nodes[addr] = q
	f.mu.Unlock()
	return &Sim{fabric: f, self: addr, q: q}
}

// Sim is a Network backed by a Fabric: send copies payload straight
// into the target's queue, with no real wire in between. It never
// drops a message addressed to a registered endpoint; a message to an
// address no endpoint is registered for is dropped silently. A test
// wanting to exercise spec.md §7's transient network failure can
// simply not call Send for a given peer.
type Sim struct {
	fabric *Fabric
	self   address.Address
	q      *simQueue
}

func (s *Sim) Send(to address.Address, payload []byte) {
	s.fabric.mu.Lock()
	q, ok := s.fabric.nodes[to]
	s.fabric.mu.Unlock()
	if !ok {
		return
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	q.mu.Lock()
	q.pending = append(q.pending, cp)
	q.mu.Unlock()
}

func (s *Sim) Drain() [][]byte {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	out := s.q.pending
	s.q.pending = nil
	return out
}

func (s *Sim) LocalAddr() address.Address { return s.self }

func (s *Sim) Close() error { return nil }
