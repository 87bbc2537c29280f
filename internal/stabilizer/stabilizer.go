package stabilizer

import (
	"kvstore/internal/address"
	"kvstore/internal/ring"
	"kvstore/internal/storage"
	"kvstore/internal/wire"
)

// reservedBit marks a transaction id as repair traffic, keeping it
// disjoint from quorum.Coordinator's own counter (which starts at 1
// and counts up) so a repair reply can never collide with a live
// client transaction and is dropped silently by IngestReply.
const reservedBit = uint32(1) << 31

// Outbound pairs a repair message with the address it must be sent to.
type Outbound struct {
	Target address.Address
	Msg    wire.Message
}

// Stabilizer holds the neighbor caches and per-key replica-triple
// memory one peer needs to repair its data after a ring change,
// spec.md §4.5.
type Stabilizer struct {
	self address.Address

	hasMyReplicas  []address.Address
	haveReplicasOf []address.Address

	lastTriple map[string][]address.Address

	reservedCounter uint32
}

// New creates a Stabilizer for self.
func New(self address.Address) *Stabilizer {
	return &Stabilizer{self: self, lastTriple: make(map[string][]address.Address)}
}

// RefreshNeighbors rebuilds has_my_replicas and have_replicas_of from
// the current ring, per spec.md §4.5. Call this after every ring.Build
// that reports a change.
func (s *Stabilizer) RefreshNeighbors(r *ring.Ring) {
	s.hasMyReplicas = r.SuccessorsOf(s.self, 2)
	s.haveReplicasOf = r.PredecessorsOf(s.self, 2)
}

// HasMyReplicas returns the two ring successors that hold copies of
// this peer's primary keys.
func (s *Stabilizer) HasMyReplicas() []address.Address {
	out := make([]address.Address, len(s.hasMyReplicas))
	copy(out, s.hasMyReplicas)
	return out
}

// HaveReplicasOf returns the two ring predecessors whose primary keys
// this peer holds copies of.
func (s *Stabilizer) HaveReplicasOf() []address.Address {
	out := make([]address.Address, len(s.haveReplicasOf))
	copy(out, s.haveReplicasOf)
	return out
}

// Reconcile repairs this peer's own role and the remote copies it is
// responsible for after a ring change (spec.md §4.5). It first rebuilds
// has_my_replicas and have_replicas_of from r. Then, for each key held
// locally with role Primary, it checks in O(1), straight from the
// refreshed caches and with no ring search, whether this peer still
// owns the key's hash. When it does, has_my_replicas[0] and [1] are the
// key's Secondary and Tertiary, so the triple needed to detect a
// newcomer or a departing replica comes straight off the cache
// (spec.md §4.5(2)). Only a key whose ownership actually changed, or
// one held under Secondary/Tertiary, falls back to a per-key ring
// search to find its true current triple.
//
// Once a key's triple is known, by whichever path:
//
//   - A key no longer in it is erased locally. If this peer was
//     Primary, the value is first handed off to the new Primary via a
//     reserved-id CREATE, a no-op if the new Primary already holds it,
//     which it will whenever it was already a Secondary or Tertiary
//     replica. That peer's own Reconcile pass fixes its role
//     independently of whether the handoff succeeds.
//   - A key still in the triple has its local role corrected in place
//     if it changed.
//   - For a key this peer is still Primary for, any replica newly
//     present in the triple gets a reserved-id CREATE, and any replica
//     dropped from it gets a reserved-id DELETE. Both are
//     fire-and-forget: the reply, if any, carries a reserved
//     transaction id and is absorbed silently by the coordinator.
func (s *Stabilizer) Reconcile(r *ring.Ring, store *storage.Store) []Outbound {
	s.RefreshNeighbors(r)
	var out []Outbound

	selfHash := ring.HashAddress(s.self)
	var predHash uint32
	ownershipCached := len(s.haveReplicasOf) >= 1 && len(s.hasMyReplicas) >= 2
	if ownershipCached {
		predHash = ring.HashAddress(s.haveReplicasOf[0])
	}

	for _, key := range store.Keys() {
		rec, present := store.Get(key)
		if !present {
			continue
		}

		var triple []ring.ReplicaAssignment
		if rec.Role == wire.Primary && ownershipCached && ownsHash(ring.HashKey(key), predHash, selfHash) {
			triple = []ring.ReplicaAssignment{
				{Addr: s.self, Role: wire.Primary},
				{Addr: s.hasMyReplicas[0], Role: wire.Secondary},
				{Addr: s.hasMyReplicas[1], Role: wire.Tertiary},
			}
		} else {
			triple = r.FindNodes(key)
			if triple == nil {
				continue
			}
		}

		out = append(out, s.reconcileKey(key, rec, triple, store)...)
	}

	return out
}

// reconcileKey applies the replica-triple repair rules for one key once
// its current triple is known, regardless of whether that triple came
// from the neighbor caches or a ring search.
func (s *Stabilizer) reconcileKey(key string, rec storage.StoredRecord, triple []ring.ReplicaAssignment, store *storage.Store) []Outbound {
	var out []Outbound

	selfRole, inTriple := roleOf(triple, s.self)

	if !inTriple {
		if rec.Role == wire.Primary {
			out = append(out, Outbound{
				Target: triple[0].Addr,
				Msg:    s.createMsg(key, rec.Value, wire.Primary),
			})
		}
		store.Delete(key)
		delete(s.lastTriple, key)
		return out
	}

	if rec.Role != selfRole {
		store.SetRole(key, selfRole)
	}

	if selfRole != wire.Primary {
		delete(s.lastTriple, key)
		return out
	}

	old := s.lastTriple[key]
	for _, ra := range triple {
		if ra.Addr.Equal(s.self) {
			continue
		}
		if !containsAddr(old, ra.Addr) {
			out = append(out, Outbound{
				Target: ra.Addr,
				Msg:    s.createMsg(key, rec.Value, ra.Role),
			})
		}
	}
	for _, a := range old {
		if a.Equal(s.self) || containsTripleAddr(triple, a) {
			continue
		}
		out = append(out, Outbound{
			Target: a,
			Msg:    s.deleteMsg(key),
		})
	}

	addrs := make([]address.Address, 0, len(triple))
	for _, ra := range triple {
		addrs = append(addrs, ra.Addr)
	}
	s.lastTriple[key] = addrs

	return out
}

// ownsHash reports whether the node at selfHash owns the ring arc
// (predHash, selfHash], handling the wraparound case where selfHash is
// the smallest hash on the ring.
func ownsHash(hash, predHash, selfHash uint32) bool {
	if predHash < selfHash {
		return hash > predHash && hash <= selfHash
	}
	return hash > predHash || hash <= selfHash
}

func (s *Stabilizer) nextTransID() uint32 {
	s.reservedCounter++
	return reservedBit | s.reservedCounter
}

func (s *Stabilizer) createMsg(key, value string, role wire.ReplicaRole) wire.Message {
	return wire.KvCreate{
		Hdr:     wire.Header{TransID: s.nextTransID(), From: s.self},
		Key:     key,
		Value:   value,
		Replica: role,
	}
}

func (s *Stabilizer) deleteMsg(key string) wire.Message {
	return wire.KvDelete{
		Hdr: wire.Header{TransID: s.nextTransID(), From: s.self},
		Key: key,
	}
}

func roleOf(triple []ring.ReplicaAssignment, self address.Address) (wire.ReplicaRole, bool) {
	for _, ra := range triple {
		if ra.Addr.Equal(self) {
			return ra.Role, true
		}
	}
	return 0, false
}

func containsAddr(addrs []address.Address, a address.Address) bool {
	for _, x := range addrs {
		if x.Equal(a) {
			return true
		}
	}
	return false
}

func containsTripleAddr(triple []ring.ReplicaAssignment, a address.Address) bool {
	for _, ra := range triple {
		if ra.Addr.Equal(a) {
			return true
		}
	}
	return false
}
