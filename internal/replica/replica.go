// Package replica implements the Replica Server: applying inbound
// CRUD messages to the local store on behalf of a remote coordinator
// and replying with the same trans_id, per spec.md §4.4.
package replica

import (
	"kvstore/internal/address"
	"kvstore/internal/storage"
	"kvstore/internal/wire"
)

// ServerEvent is the server-side success/failure event spec.md §4.4
// and §6 require, distinguished from the coordinator-side event by
// IsCoordinator=false wherever it is logged.
type ServerEvent struct {
	Op      wire.MsgType
	Key     string
	Value   string
	Success bool
}

// Handle applies one inbound CRUD message to store and returns the
// reply to send back to the coordinator (self identifies this
// replica as the reply's sender), plus the server-side event to log.
// Unrecognized message types return (nil, ServerEvent{}) — the caller
// is expected to route only CRUD message types here.
func Handle(self address.Address, store *storage.Store, msg wire.Message) (wire.Message, ServerEvent) {
	transID := msg.Header().TransID
	replyHdr := wire.Header{TransID: transID, From: self}

	switch m := msg.(type) {
	case wire.KvCreate:
		ok := store.Create(m.Key, m.Value, m.Replica)
		return wire.KvReply{Hdr: replyHdr, Success: ok},
			ServerEvent{Op: wire.MsgKvCreate, Key: m.Key, Value: m.Value, Success: ok}
	case wire.KvUpdate:
		ok := store.Update(m.Key, m.Value)
		return wire.KvReply{Hdr: replyHdr, Success: ok},
			ServerEvent{Op: wire.MsgKvUpdate, Key: m.Key, Value: m.Value, Success: ok}
	case wire.KvDelete:
		ok := store.Delete(m.Key)
		return wire.KvReply{Hdr: replyHdr, Success: ok},
			ServerEvent{Op: wire.MsgKvDelete, Key: m.Key, Success: ok}
	case wire.KvRead:
		value, ok := store.Read(m.Key)
		return wire.KvReadReply{Hdr: replyHdr, Success: ok, Value: value},
			ServerEvent{Op: wire.MsgKvRead, Key: m.Key, Value: value, Success: ok}
	default:
		return nil, ServerEvent{}
	}
}
