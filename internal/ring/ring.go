package ring

import (
	"hash/fnv"
	"sort"

	"kvstore/internal/address"
	"kvstore/internal/wire"
)

// Size is RING_SIZE, the modulus every peer hashes addresses and keys
// into. It must match across all peers (spec.md §4.2); 2^20 satisfies
// the "large power of two, >= 2^16" requirement with headroom.
const Size = 1 << 20

// RingNode is one live peer's position on the ring, per spec.md §3.
type RingNode struct {
	Addr address.Address
	Hash uint32
}

// Ring is the sorted sequence of RingNodes built from the current
// live peer set. It is owned by one peer and rebuilt wholesale on
// every Build call; it is not safe for concurrent use (spec.md §5:
// no locking needed under the single-threaded per-peer model).
type Ring struct {
	nodes []RingNode
}

// New returns an empty ring.
func New() *Ring {
	return &Ring{}
}

// HashAddress computes an address's ring position, per spec.md §4.2:
// consistent_hash("id:port") mod RING_SIZE.
func HashAddress(a address.Address) uint32 {
	return hashString(a.Canonical())
}

// HashKey computes a key's ring position.
func HashKey(key string) uint32 {
	return hashString(key)
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() % Size
}

// Build replaces the ring contents with one RingNode per address in
// livePeers, sorted ascending by hash with ties broken by address
// bytes (spec.md §3). It returns true if the resulting ordered
// sequence differs from the ring's previous contents, signaling the
// stabilizer to run.
func (r *Ring) Build(livePeers []address.Address) bool {
	next := make([]RingNode, len(livePeers))
	for i, a := range livePeers {
		next[i] = RingNode{Addr: a, Hash: HashAddress(a)}
	}
	sort.Slice(next, func(i, j int) bool {
		if next[i].Hash != next[j].Hash {
			return next[i].Hash < next[j].Hash
		}
		return next[i].Addr.Less(next[j].Addr)
	})

	changed := !sameOrder(r.nodes, next)
	r.nodes = next
	return changed
}

func sameOrder(a, b []RingNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Hash != b[i].Hash || !a[i].Addr.Equal(b[i].Addr) {
			return false
		}
	}
	return true
}

// Nodes returns the current ring in ascending-hash order.
func (r *Ring) Nodes() []RingNode {
	out := make([]RingNode, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// ReplicaAssignment pairs an address with the role it plays for a key.
type ReplicaAssignment struct {
	Addr address.Address
	Role wire.ReplicaRole
}

// FindNodes computes the replica triple for key per spec.md §4.2's
// findNodes(key): the three ring successors of hash(key), clockwise,
// typed (Primary, Secondary, Tertiary) in that order. Returns nil if
// fewer than three peers are on the ring.
func (r *Ring) FindNodes(key string) []ReplicaAssignment {
	n := len(r.nodes)
	if n < 3 {
		return nil
	}

	p := HashKey(key)
	idx := sort.Search(n, func(i int) bool { return r.nodes[i].Hash >= p })
	if idx == n {
		idx = 0
	}

	roles := [3]wire.ReplicaRole{wire.Primary, wire.Secondary, wire.Tertiary}
	out := make([]ReplicaAssignment, 3)
	for i := 0; i < 3; i++ {
		out[i] = ReplicaAssignment{
			Addr: r.nodes[(idx+i)%n].Addr,
			Role: roles[i],
		}
	}
	return out
}

// SuccessorsOf returns the n ring successors of addr, not including
// addr itself, used by the stabilizer to build has_my_replicas
// (spec.md §4.5). Returns fewer than n entries if the ring is too
// small to supply that many distinct other peers.
func (r *Ring) SuccessorsOf(addr address.Address, n int) []address.Address {
	return r.neighborsOf(addr, n, 1)
}

// PredecessorsOf returns the n ring predecessors of addr, not
// including addr itself, used to build have_replicas_of.
func (r *Ring) PredecessorsOf(addr address.Address, n int) []address.Address {
	return r.neighborsOf(addr, n, -1)
}

func (r *Ring) neighborsOf(addr address.Address, n, step int) []address.Address {
	total := len(r.nodes)
	if total < 2 {
		return nil
	}
	self := -1
	for i, node := range r.nodes {
		if node.Addr.Equal(addr) {
			self = i
			break
		}
	}
	if self < 0 {
		return nil
	}

	out := make([]address.Address, 0, n)
	for i := 1; i <= n && i < total; i++ {
		idx := ((self+step*i)%total + total) % total
		out = append(out, r.nodes[idx].Addr)
	}
	return out
}
