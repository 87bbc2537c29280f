package gossip

import (
	"math/rand"

	"kvstore/internal/address"
	"kvstore/internal/clock"
	"kvstore/internal/wire"
)

// Parameters fixed by spec.md §4.1.
const (
	TFail   = 5  // ticks of silence before a peer is suspected
	TRemove = 20 // ticks of silence before a suspected peer is evicted
	Fanout  = 5  // gossip targets per tick
)

// Introducer is the well-known bootstrap peer, id=1 port=0.
var Introducer = address.New(1, 0)

// Member is one entry in the membership list: spec.md §3's
// MembershipEntry, minus the id/port split (carried in Addr).
type Member struct {
	Addr      address.Address
	Heartbeat int64
	LastSeen  clock.Tick
}

// NodeAdd is emitted when a previously unknown peer is learned,
// either from a JoinReq/JoinRep or from gossip merge.
type NodeAdd struct {
	Added address.Address
}

// NodeRemove is emitted the first time a peer transitions into the
// suspected set. Per spec.md §9 open question 1, this fires on
// suspicion, not eviction — the behavior observed in the source is
// preserved as specified.
type NodeRemove struct {
	Removed address.Address
}

// MFD is the per-peer membership and failure detector state. Per
// spec.md §9's re-architecture note, self is tracked as an explicit
// field rather than as list index 0, eliminating the hidden
// self-is-index-0 invariant the original source relied on.
type MFD struct {
	self       address.Address
	introducer address.Address
	inGroup    bool
	selfHB     int64

	peers     map[address.Address]*Member
	suspected map[address.Address]struct{}
	order     []address.Address // insertion order of peers, for LivePeers' stable-within-a-tick contract

	rnd *rand.Rand
}

// New creates an MFD for self, which bootstraps against introducer.
func New(self, introducer address.Address) *MFD {
	return &MFD{
		self:       self,
		introducer: introducer,
		peers:      make(map[address.Address]*Member),
		suspected:  make(map[address.Address]struct{}),
		rnd:        rand.New(rand.NewSource(int64(self.ID)<<16 | int64(self.Port))),
	}
}

// InGroup reports whether this peer has completed bootstrap.
func (m *MFD) InGroup() bool {
	return m.inGroup
}

// Bootstrap implements spec.md §4.1's bootstrap procedure. If self is
// the introducer it joins immediately; otherwise it returns a JoinReq
// to send to the introducer. Calling Bootstrap when already in_group
// is a no-op returning nil.
func (m *MFD) Bootstrap(now clock.Tick, transID uint32) wire.Message {
	if m.inGroup {
		return nil
	}
	if m.self.Equal(m.introducer) {
		m.inGroup = true
		return nil
	}
	return wire.JoinReq{
		Hdr:       wire.Header{TransID: transID, From: m.self},
		Addr:      m.self,
		Heartbeat: m.selfHB,
	}
}

// HandleJoinReq is the introducer-side handler: add/refresh the
// sender's entry and build the JoinRep carrying the current member
// list. Returns the NodeAdd event if the sender was previously
// unknown, so the caller can log it alongside any NodeAdd produced by
// gossip merge (spec.md S2: "one NodeAdd event per observer for the
// peer it newly learned").
func (m *MFD) HandleJoinReq(req wire.JoinReq, now clock.Tick) (wire.JoinRep, *NodeAdd) {
	added := m.upsertFromHeartbeat(req.Addr, req.Heartbeat, now)
	return wire.JoinRep{
		Hdr:    wire.Header{TransID: req.Hdr.TransID, From: m.self},
		Member: m.snapshotWire(now),
	}, added
}

// HandleJoinRep completes bootstrap for a joining peer: marks
// in_group and merges the carried member list.
func (m *MFD) HandleJoinRep(rep wire.JoinRep, now clock.Tick) []NodeAdd {
	m.inGroup = true
	return m.merge(rep.Member, now)
}

// Tick advances self's heartbeat by one and runs the sweep, per
// spec.md §4.1's per-tick loop steps 1-2. It is a no-op before
// bootstrap completes. Returns the NodeRemove events produced by
// newly-suspected peers.
func (m *MFD) Tick(now clock.Tick) []NodeRemove {
	if !m.inGroup {
		return nil
	}
	m.selfHB++

	var removed []NodeRemove
	for addr, mem := range m.peers {
		delta := int64(now) - int64(mem.LastSeen)
		_, isSuspected := m.suspected[addr]
		if delta > TRemove {
			delete(m.peers, addr)
			delete(m.suspected, addr)
			m.order = removeAddr(m.order, addr)
		} else if delta > TFail && !isSuspected {
			m.suspected[addr] = struct{}{}
			removed = append(removed, NodeRemove{Removed: addr})
		}
	}
	return removed
}

// GossipOut pairs an outgoing Gossip message with the peer it is
// addressed to.
type GossipOut struct {
	Target address.Address
	Msg    wire.Gossip
}

// Gossip implements spec.md §4.1 step 3: pick up to Fanout distinct
// non-suspected peers (excluding self) and build one Gossip message
// per target, each carrying a member list with suspected ids omitted.
// Returns nil before bootstrap completes.
func (m *MFD) Gossip(now clock.Tick, transID uint32) []GossipOut {
	if !m.inGroup {
		return nil
	}
	candidates := make([]address.Address, 0, len(m.order))
	for _, addr := range m.order {
		if _, suspect := m.suspected[addr]; !suspect {
			candidates = append(candidates, addr)
		}
	}
	m.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	n := Fanout
	if n > len(candidates) {
		n = len(candidates)
	}
	members := m.snapshotWire(now)
	out := make([]GossipOut, 0, n)
	for _, target := range candidates[:n] {
		out = append(out, GossipOut{
			Target: target,
			Msg: wire.Gossip{
				Hdr:    wire.Header{TransID: transID, From: m.self},
				Member: members,
			},
		})
	}
	return out
}

// ApplyGossip merges an incoming Gossip message per spec.md §4.1's
// merge rule.
func (m *MFD) ApplyGossip(g wire.Gossip, now clock.Tick) []NodeAdd {
	return m.merge(g.Member, now)
}

func (m *MFD) merge(incoming []wire.MembershipEntry, now clock.Tick) []NodeAdd {
	var added []NodeAdd
	for _, e := range incoming {
		addr := address.New(e.ID, e.Port)
		if addr.Equal(m.self) {
			continue // ignore self-entry in gossip, per spec.md §4.1
		}
		if na := m.upsertFromHeartbeat(addr, e.Heartbeat, now); na != nil {
			added = append(added, *na)
		}
	}
	return added
}

// upsertFromHeartbeat applies spec.md §4.1's merge rule for one
// incoming entry: dropped if suspected, updated if the incoming
// heartbeat strictly exceeds the stored one, inserted if unknown.
func (m *MFD) upsertFromHeartbeat(addr address.Address, heartbeat int64, now clock.Tick) *NodeAdd {
	if _, suspected := m.suspected[addr]; suspected {
		return nil
	}
	if local, exists := m.peers[addr]; exists {
		if heartbeat > local.Heartbeat {
			local.Heartbeat = heartbeat
			local.LastSeen = now
		}
		return nil
	}
	m.peers[addr] = &Member{Addr: addr, Heartbeat: heartbeat, LastSeen: now}
	m.order = append(m.order, addr)
	return &NodeAdd{Added: addr}
}

// LivePeers returns every peer not currently suspected, including
// self, in insertion order stable within a tick — the contract §4.1
// exposes to the Ring Manager. Map iteration order is randomized per
// call, so this walks m.order rather than m.peers directly.
func (m *MFD) LivePeers() []address.Address {
	out := make([]address.Address, 0, len(m.order)+1)
	out = append(out, m.self)
	for _, addr := range m.order {
		if _, suspect := m.suspected[addr]; !suspect {
			out = append(out, addr)
		}
	}
	return out
}

// removeAddr returns addrs with a's first occurrence removed.
func removeAddr(addrs []address.Address, a address.Address) []address.Address {
	for i, x := range addrs {
		if x.Equal(a) {
			return append(addrs[:i], addrs[i+1:]...)
		}
	}
	return addrs
}

// snapshotWire builds the wire member-list form of the current
// membership, including self and excluding suspected ids, per
// spec.md §4.1's gossip body rule.
func (m *MFD) snapshotWire(now clock.Tick) []wire.MembershipEntry {
	entries := make([]wire.MembershipEntry, 0, len(m.peers)+1)
	entries = append(entries, wire.MembershipEntry{
		ID:        m.self.ID,
		Port:      m.self.Port,
		Heartbeat: m.selfHB,
		LastSeen:  int64(now),
	})
	for _, addr := range m.order {
		if _, suspect := m.suspected[addr]; suspect {
			continue
		}
		mem := m.peers[addr]
		entries = append(entries, wire.MembershipEntry{
			ID:        addr.ID,
			Port:      addr.Port,
			Heartbeat: mem.Heartbeat,
			LastSeen:  int64(mem.LastSeen),
		})
	}
	return entries
}

// Suspected reports whether addr is currently in the suspected set.
func (m *MFD) Suspected(addr address.Address) bool {
	_, ok := m.suspected[addr]
	return ok
}
