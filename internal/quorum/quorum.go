package quorum

import (
	"kvstore/internal/address"
	"kvstore/internal/clock"
	"kvstore/internal/ring"
	"kvstore/internal/wire"
)

// TCoord is the coordinator timeout, spec.md §4.3.
const TCoord = 10

// Op tags the CRUD operation a Transaction drives.
type Op int

const (
	OpCreate Op = iota
	OpRead
	OpUpdate
	OpDelete
)

// Transaction is the coordinator-side record for one in-flight client
// call, spec.md §3.
type Transaction struct {
	TransID        uint32
	Op             Op
	Key            string
	Value          string
	StartedTick    clock.Tick
	RepliesSuccess []address.Address
	RepliesFailure []address.Address
	ReadValues     []string
	Resolved       bool
}

// Resolution is the single event a Transaction's resolution produces,
// spec.md §4.3 ("Resolution emits exactly one coordinator-side
// success or failure event per transaction").
type Resolution struct {
	TransID uint32
	Op      Op
	Key     string
	Value   string // the write value, or the agreed read value
	Success bool
}

// Outbound pairs a message with the address it must be sent to.
type Outbound struct {
	Target address.Address
	Msg    wire.Message
}

// Coordinator drives CRUD requests issued by the local client to
// quorum resolution, per spec.md §4.3. It owns a per-peer transaction
// id counter (spec.md §9 open question 4: narrowed from process-wide
// state in the original source).
type Coordinator struct {
	self address.Address
	next uint32
	txns map[uint32]*Transaction
}

// New creates a Coordinator for self.
func New(self address.Address) *Coordinator {
	return &Coordinator{self: self, txns: make(map[uint32]*Transaction)}
}

// Begin allocates a transaction id, records the Transaction, and
// builds the outbound messages to the three replicas in replicas,
// stamping each with its ReplicaRole. replicas must have length 3
// (the caller is expected to have checked ring.FindNodes succeeded).
func (c *Coordinator) Begin(op Op, key, value string, now clock.Tick, replicas []ring.ReplicaAssignment) (uint32, []Outbound) {
	c.next++
	transID := c.next

	c.txns[transID] = &Transaction{
		TransID:     transID,
		Op:          op,
		Key:         key,
		Value:       value,
		StartedTick: now,
	}

	hdr := wire.Header{TransID: transID, From: c.self}
	out := make([]Outbound, 0, len(replicas))
	for _, r := range replicas {
		var msg wire.Message
		switch op {
		case OpCreate:
			msg = wire.KvCreate{Hdr: hdr, Key: key, Value: value, Replica: r.Role}
		case OpUpdate:
			msg = wire.KvUpdate{Hdr: hdr, Key: key, Value: value, Replica: r.Role}
		case OpRead:
			msg = wire.KvRead{Hdr: hdr, Key: key}
		case OpDelete:
			msg = wire.KvDelete{Hdr: hdr, Key: key}
		}
		out = append(out, Outbound{Target: r.Addr, Msg: msg})
	}
	return transID, out
}

// IngestReply looks up the transaction a KvReply/KvReadReply belongs
// to and folds it in, per spec.md §4.3's reply intake rule. Unknown
// or already-resolved transaction ids are dropped silently (this also
// absorbs stabilizer repair replies, whose reserved transaction ids
// never appear in this Coordinator's table — see internal/stabilizer).
// Returns a non-nil Resolution exactly when this reply causes the
// transaction to resolve.
func (c *Coordinator) IngestReply(msg wire.Message, now clock.Tick) *Resolution {
	hdr := msg.Header()
	txn, ok := c.txns[hdr.TransID]
	if !ok || txn.Resolved {
		return nil
	}

	switch m := msg.(type) {
	case wire.KvReply:
		if m.Success {
			txn.RepliesSuccess = append(txn.RepliesSuccess, hdr.From)
		} else {
			txn.RepliesFailure = append(txn.RepliesFailure, hdr.From)
		}
	case wire.KvReadReply:
		if m.Success {
			txn.RepliesSuccess = append(txn.RepliesSuccess, hdr.From)
			txn.ReadValues = append(txn.ReadValues, m.Value)
		} else {
			txn.RepliesFailure = append(txn.RepliesFailure, hdr.From)
		}
	default:
		return nil
	}

	return c.tryResolve(txn)
}

// Sweep finds transactions that have exceeded TCoord ticks unresolved
// and resolves them as failures, per spec.md §4.3's timeout rule.
func (c *Coordinator) Sweep(now clock.Tick) []Resolution {
	var out []Resolution
	for id, txn := range c.txns {
		if txn.Resolved {
			continue
		}
		if int64(now)-int64(txn.StartedTick) > TCoord {
			res := Resolution{TransID: txn.TransID, Op: txn.Op, Key: txn.Key, Value: txn.Value, Success: false}
			txn.Resolved = true
			out = append(out, res)
			delete(c.txns, id)
		}
	}
	return out
}

// tryResolve applies spec.md §4.3's resolution rule. It mutates txn
// and removes it from the table when resolution is reached.
func (c *Coordinator) tryResolve(txn *Transaction) *Resolution {
	switch txn.Op {
	case OpCreate, OpUpdate, OpDelete:
		if len(txn.RepliesSuccess) >= 2 {
			return c.resolve(txn, Resolution{TransID: txn.TransID, Op: txn.Op, Key: txn.Key, Value: txn.Value, Success: true})
		}
		if len(txn.RepliesFailure) >= 2 {
			return c.resolve(txn, Resolution{TransID: txn.TransID, Op: txn.Op, Key: txn.Key, Value: txn.Value, Success: false})
		}
	case OpRead:
		if len(txn.RepliesSuccess) >= 2 {
			if v, agree := majorityValue(txn.ReadValues); agree {
				return c.resolve(txn, Resolution{TransID: txn.TransID, Op: txn.Op, Key: txn.Key, Value: v, Success: true})
			}
			// All three replies in: no majority possible, this is a
			// read failure (spec.md §4.3: "otherwise treat as read failure").
			if len(txn.RepliesSuccess)+len(txn.RepliesFailure) >= 3 {
				return c.resolve(txn, Resolution{TransID: txn.TransID, Op: txn.Op, Key: txn.Key, Success: false})
			}
		} else if len(txn.RepliesFailure) >= 2 {
			return c.resolve(txn, Resolution{TransID: txn.TransID, Op: txn.Op, Key: txn.Key, Success: false})
		}
	}
	return nil
}

func (c *Coordinator) resolve(txn *Transaction, res Resolution) *Resolution {
	txn.Resolved = true
	delete(c.txns, txn.TransID)
	return &res
}

// majorityValue reports the value held by at least 2 of the given
// read replies, per spec.md §4.3's "prefer the value reported by the
// majority (2-of-3)" rule. agree is false if no value has a majority.
func majorityValue(values []string) (string, bool) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
		if counts[v] >= 2 {
			return v, true
		}
	}
	return "", false
}

// Pending reports the number of unresolved in-flight transactions,
// used for debug introspection.
func (c *Coordinator) Pending() int {
	return len(c.txns)
}
