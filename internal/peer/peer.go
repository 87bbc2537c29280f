package peer

import (
	"errors"

	"kvstore/internal/address"
	"kvstore/internal/clock"
	"kvstore/internal/eventlog"
	"kvstore/internal/gossip"
	"kvstore/internal/quorum"
	"kvstore/internal/replica"
	"kvstore/internal/ring"
	"kvstore/internal/stabilizer"
	"kvstore/internal/storage"
	"kvstore/internal/transport"
	"kvstore/internal/wire"
)

// ErrNoReplicas is returned by the client API when fewer than three
// peers are currently on the ring, per spec.md §4.2:
// "If |ring| < 3, return an empty set; no operation can proceed."
var ErrNoReplicas = errors.New("peer: fewer than three live peers on ring, no operation can proceed")

// Peer owns every per-node component spec.md §2 lists and drives them
// through one Tick per logical time step. It is never shared across
// goroutines; the caller (the tests, over an internal/transport.Sim
// network, or cmd/peerd's tick loop in the binary) is expected to call
// Tick from a single goroutine, matching spec.md §5's single-threaded
// model.
type Peer struct {
	self       address.Address
	introducer address.Address

	net transport.Network
	log *eventlog.Logger

	mfd   *gossip.MFD
	ring  *ring.Ring
	stab  *stabilizer.Stabilizer
	store *storage.Store
	coord *quorum.Coordinator

	ctrlTransID uint32
}

// New creates a Peer for self. introducer is the well-known bootstrap
// address (gossip.Introducer unless overridden for tests).
func New(self, introducer address.Address, net transport.Network, log *eventlog.Logger) *Peer {
	return &Peer{
		self:       self,
		introducer: introducer,
		net:        net,
		log:        log,
		mfd:        gossip.New(self, introducer),
		ring:       ring.New(),
		stab:       stabilizer.New(self),
		store:      storage.New(),
		coord:      quorum.New(self),
	}
}

// Self returns this peer's address.
func (p *Peer) Self() address.Address { return p.self }

// InGroup reports whether bootstrap has completed.
func (p *Peer) InGroup() bool { return p.mfd.InGroup() }

// LivePeers returns the MFD's current live-peer view, per spec.md
// §4.1's live_peers() contract.
func (p *Peer) LivePeers() []address.Address { return p.mfd.LivePeers() }

// Suspected reports whether addr is currently suspected.
func (p *Peer) Suspected(addr address.Address) bool { return p.mfd.Suspected(addr) }

// RingNodes returns the current ring in ascending-hash order.
func (p *Peer) RingNodes() []ring.RingNode { return p.ring.Nodes() }

// PendingTransactions reports the number of unresolved coordinator
// transactions.
func (p *Peer) PendingTransactions() int { return p.coord.Pending() }

// StoreLen reports the number of keys held locally.
func (p *Peer) StoreLen() int { return p.store.Len() }

// Create invokes a CREATE against the replica triple for key, per
// spec.md §4.3's operation invocation rule.
func (p *Peer) Create(key, value string, now clock.Tick) (uint32, error) {
	return p.begin(quorum.OpCreate, key, value, now)
}

// Read invokes a READ for key.
func (p *Peer) Read(key string, now clock.Tick) (uint32, error) {
	return p.begin(quorum.OpRead, key, "", now)
}

// Update invokes an UPDATE for key.
func (p *Peer) Update(key, value string, now clock.Tick) (uint32, error) {
	return p.begin(quorum.OpUpdate, key, value, now)
}

// Delete invokes a DELETE for key.
func (p *Peer) Delete(key string, now clock.Tick) (uint32, error) {
	return p.begin(quorum.OpDelete, key, "", now)
}

func (p *Peer) begin(op quorum.Op, key, value string, now clock.Tick) (uint32, error) {
	replicas := p.ring.FindNodes(key)
	if replicas == nil {
		return 0, ErrNoReplicas
	}
	transID, out := p.coord.Begin(op, key, value, now, replicas)
	for _, o := range out {
		p.send(o.Target, o.Msg)
	}
	return transID, nil
}

// Tick implements spec.md §2's per-tick control flow: MFD
// heartbeat/sweep/gossip, ring rebuild with stabilization on change,
// inbound drain and dispatch in FIFO order, then coordinator sweep.
func (p *Peer) Tick(now clock.Tick) {
	if !p.mfd.InGroup() {
		if msg := p.mfd.Bootstrap(now, p.nextCtrlID()); msg != nil {
			p.send(p.introducer, msg)
		}
	}

	for _, ev := range p.mfd.Tick(now) {
		p.log.NodeRemove(p.self, ev.Removed)
	}
	for _, g := range p.mfd.Gossip(now, p.nextCtrlID()) {
		p.send(g.Target, g.Msg)
	}

	if p.ring.Build(p.mfd.LivePeers()) {
		for _, o := range p.stab.Reconcile(p.ring, p.store) {
			p.send(o.Target, o.Msg)
		}
	}

	for _, raw := range p.net.Drain() {
		msg, err := wire.Decode(raw)
		if err != nil {
			continue // protocol violation: dropped silently, spec.md §7
		}
		p.dispatch(msg, now)
	}

	for _, res := range p.coord.Sweep(now) {
		p.logResolution(res)
	}
}

// dispatch routes one decoded inbound message by concrete type. A Go
// switch never falls through between cases, which is what spec.md §9
// (open question 2) and §12 require in place of the original source's
// missing-break bug.
func (p *Peer) dispatch(msg wire.Message, now clock.Tick) {
	switch m := msg.(type) {
	case wire.JoinReq:
		rep, added := p.mfd.HandleJoinReq(m, now)
		if added != nil {
			p.log.NodeAdd(p.self, added.Added)
		}
		p.send(m.Addr, rep)
	case wire.JoinRep:
		for _, a := range p.mfd.HandleJoinRep(m, now) {
			p.log.NodeAdd(p.self, a.Added)
		}
	case wire.Gossip:
		for _, a := range p.mfd.ApplyGossip(m, now) {
			p.log.NodeAdd(p.self, a.Added)
		}
	case wire.KvCreate, wire.KvUpdate, wire.KvRead, wire.KvDelete:
		reply, ev := replica.Handle(p.self, p.store, m)
		p.logServerEvent(msg.Header().TransID, ev)
		if reply != nil {
			p.send(msg.Header().From, reply)
		}
	case wire.KvReply, wire.KvReadReply:
		if res := p.coord.IngestReply(m, now); res != nil {
			p.logResolution(*res)
		}
	}
}

func (p *Peer) logServerEvent(transID uint32, ev replica.ServerEvent) {
	switch ev.Op {
	case wire.MsgKvCreate:
		p.log.CreateResult(p.self, false, transID, ev.Key, ev.Value, ev.Success)
	case wire.MsgKvUpdate:
		p.log.UpdateResult(p.self, false, transID, ev.Key, ev.Value, ev.Success)
	case wire.MsgKvDelete:
		p.log.DeleteResult(p.self, false, transID, ev.Key, ev.Success)
	case wire.MsgKvRead:
		p.log.ReadResult(p.self, false, transID, ev.Key, ev.Value, ev.Success)
	}
}

func (p *Peer) logResolution(r quorum.Resolution) {
	switch r.Op {
	case quorum.OpCreate:
		p.log.CreateResult(p.self, true, r.TransID, r.Key, r.Value, r.Success)
	case quorum.OpUpdate:
		p.log.UpdateResult(p.self, true, r.TransID, r.Key, r.Value, r.Success)
	case quorum.OpDelete:
		p.log.DeleteResult(p.self, true, r.TransID, r.Key, r.Success)
	case quorum.OpRead:
		p.log.ReadResult(p.self, true, r.TransID, r.Key, r.Value, r.Success)
	}
}

func (p *Peer) nextCtrlID() uint32 {
	p.ctrlTransID++
	return p.ctrlTransID
}

// send encodes and transmits msg, dropping silently on a nil message
// or an encode failure (neither should occur with this module's own
// message constructors, but a future wire type added without a codec
// case must not panic the peer's tick).
func (p *Peer) send(to address.Address, msg wire.Message) {
	if msg == nil {
		return
	}
	payload, err := wire.Encode(msg)
	if err != nil {
		return
	}
	p.net.Send(to, payload)
}
