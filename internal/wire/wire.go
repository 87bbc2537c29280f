// Package wire implements the fixed binary protocol described in
// spec.md §6: a tagged-variant message set with a common header and a
// type-specific little-endian body, replacing the raw memory layout
// with a trailing variable-length array that the original source used
// (see DESIGN.md).
package wire

import (
	"encoding/binary"
	"fmt"

	"kvstore/internal/address"
)

// MsgType tags the body that follows the common header. Values 0-2
// keep the enumeration original_source/MP1Node.h used
// (JOINREQ, JOINREP, GOSSIP); the KV types are this layer's own.
type MsgType uint8

const (
	MsgJoinReq MsgType = iota
	MsgJoinRep
	MsgGossip
	MsgKvCreate
	MsgKvUpdate
	MsgKvRead
	MsgKvDelete
	MsgKvReply
	MsgKvReadReply
)

func (t MsgType) String() string {
	switch t {
	case MsgJoinReq:
		return "JoinReq"
	case MsgJoinRep:
		return "JoinRep"
	case MsgGossip:
		return "Gossip"
	case MsgKvCreate:
		return "KvCreate"
	case MsgKvUpdate:
		return "KvUpdate"
	case MsgKvRead:
		return "KvRead"
	case MsgKvDelete:
		return "KvDelete"
	case MsgKvReply:
		return "KvReply"
	case MsgKvReadReply:
		return "KvReadReply"
	default:
		return fmt.Sprintf("MsgType(%d)", uint8(t))
	}
}

// headerSize is msg_type(1) + trans_id(4) + from(6).
const headerSize = 1 + 4 + address.Size

// Header is the common prefix of every message: the transaction id it
// belongs to and the address that sent it.
type Header struct {
	TransID uint32
	From    address.Address
}

// ReplicaRole tags which position in the replica triple a KV message
// addresses, per spec.md §3.
type ReplicaRole uint8

const (
	Primary ReplicaRole = iota
	Secondary
	Tertiary
)

func (r ReplicaRole) String() string {
	switch r {
	case Primary:
		return "Primary"
	case Secondary:
		return "Secondary"
	case Tertiary:
		return "Tertiary"
	default:
		return fmt.Sprintf("ReplicaRole(%d)", uint8(r))
	}
}

// MembershipEntry is the wire form of one membership record, per
// spec.md §3/§6.
type MembershipEntry struct {
	ID        uint32
	Port      uint16
	Heartbeat int64
	LastSeen  int64
}

// Message is implemented by every concrete message type below. It
// exposes the fields every consumer needs regardless of variant.
type Message interface {
	Type() MsgType
	Header() Header
}

// JoinReq is sent by a new peer to the introducer.
type JoinReq struct {
	Hdr       Header
	Addr      address.Address
	Heartbeat int64
}

func (m JoinReq) Type() MsgType { return MsgJoinReq }
func (m JoinReq) Header() Header { return m.Hdr }

// JoinRep answers a JoinReq, optionally carrying a member list to seed
// the new peer's view.
type JoinRep struct {
	Hdr    Header
	Member []MembershipEntry
}

func (m JoinRep) Type() MsgType { return MsgJoinRep }
func (m JoinRep) Header() Header { return m.Hdr }

// Gossip carries a membership snapshot (suspected ids omitted) between
// two peers.
type Gossip struct {
	Hdr    Header
	Member []MembershipEntry
}

func (m Gossip) Type() MsgType { return MsgGossip }
func (m Gossip) Header() Header { return m.Hdr }

// KvCreate asks a replica to create key=value under the given role.
type KvCreate struct {
	Hdr     Header
	Key     string
	Value   string
	Replica ReplicaRole
}

func (m KvCreate) Type() MsgType { return MsgKvCreate }
func (m KvCreate) Header() Header { return m.Hdr }

// KvUpdate asks a replica to overwrite an existing key.
type KvUpdate struct {
	Hdr     Header
	Key     string
	Value   string
	Replica ReplicaRole
}

func (m KvUpdate) Type() MsgType { return MsgKvUpdate }
func (m KvUpdate) Header() Header { return m.Hdr }

// KvRead asks a replica for the current value of a key.
type KvRead struct {
	Hdr Header
	Key string
}

func (m KvRead) Type() MsgType { return MsgKvRead }
func (m KvRead) Header() Header { return m.Hdr }

// KvDelete asks a replica to remove a key.
type KvDelete struct {
	Hdr Header
	Key string
}

func (m KvDelete) Type() MsgType { return MsgKvDelete }
func (m KvDelete) Header() Header { return m.Hdr }

// KvReply answers CREATE/UPDATE/DELETE with a bare success flag.
type KvReply struct {
	Hdr     Header
	Success bool
}

func (m KvReply) Type() MsgType { return MsgKvReply }
func (m KvReply) Header() Header { return m.Hdr }

// KvReadReply answers READ with a success flag and, on success, the
// stored value.
type KvReadReply struct {
	Hdr     Header
	Success bool
	Value   string
}

func (m KvReadReply) Type() MsgType { return MsgKvReadReply }
func (m KvReadReply) Header() Header { return m.Hdr }

// Encode serializes a Message to its wire form.
func Encode(msg Message) ([]byte, error) {
	hdr := msg.Header()
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(msg.Type()))
	var transBuf [4]byte
	binary.LittleEndian.PutUint32(transBuf[:], hdr.TransID)
	buf = append(buf, transBuf[:]...)
	fromBytes := hdr.From.Bytes()
	buf = append(buf, fromBytes[:]...)

	switch m := msg.(type) {
	case JoinReq:
		addrBytes := m.Addr.Bytes()
		buf = append(buf, addrBytes[:]...)
		buf = appendInt64(buf, m.Heartbeat)
	case JoinRep:
		buf = appendMembers(buf, m.Member)
	case Gossip:
		buf = appendMembers(buf, m.Member)
	case KvCreate:
		buf = appendString(buf, m.Key)
		buf = appendString(buf, m.Value)
		buf = append(buf, byte(m.Replica))
	case KvUpdate:
		buf = appendString(buf, m.Key)
		buf = appendString(buf, m.Value)
		buf = append(buf, byte(m.Replica))
	case KvRead:
		buf = appendString(buf, m.Key)
	case KvDelete:
		buf = appendString(buf, m.Key)
	case KvReply:
		buf = append(buf, boolByte(m.Success))
	case KvReadReply:
		buf = append(buf, boolByte(m.Success))
		buf = appendString(buf, m.Value)
	default:
		return nil, fmt.Errorf("wire: unknown message type %T", msg)
	}
	return buf, nil
}

// Decode parses a wire-form buffer back into a concrete Message.
func Decode(b []byte) (Message, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("wire: buffer too short for header: %d bytes", len(b))
	}
	typ := MsgType(b[0])
	transID := binary.LittleEndian.Uint32(b[1:5])
	from, err := address.FromBytes(b[5:headerSize])
	if err != nil {
		return nil, fmt.Errorf("wire: decode header: %w", err)
	}
	hdr := Header{TransID: transID, From: from}
	body := b[headerSize:]

	switch typ {
	case MsgJoinReq:
		if len(body) < address.Size+8 {
			return nil, fmt.Errorf("wire: JoinReq body too short")
		}
		addr, err := address.FromBytes(body[0:address.Size])
		if err != nil {
			return nil, err
		}
		heartbeat := readInt64(body[address.Size : address.Size+8])
		return JoinReq{Hdr: hdr, Addr: addr, Heartbeat: heartbeat}, nil
	case MsgJoinRep:
		members, _, err := readMembers(body)
		if err != nil {
			return nil, fmt.Errorf("wire: JoinRep: %w", err)
		}
		return JoinRep{Hdr: hdr, Member: members}, nil
	case MsgGossip:
		members, _, err := readMembers(body)
		if err != nil {
			return nil, fmt.Errorf("wire: Gossip: %w", err)
		}
		return Gossip{Hdr: hdr, Member: members}, nil
	case MsgKvCreate, MsgKvUpdate:
		key, rest, err := readString(body)
		if err != nil {
			return nil, fmt.Errorf("wire: %s key: %w", typ, err)
		}
		value, rest, err := readString(rest)
		if err != nil {
			return nil, fmt.Errorf("wire: %s value: %w", typ, err)
		}
		if len(rest) < 1 {
			return nil, fmt.Errorf("wire: %s missing replica role", typ)
		}
		role := ReplicaRole(rest[0])
		if typ == MsgKvCreate {
			return KvCreate{Hdr: hdr, Key: key, Value: value, Replica: role}, nil
		}
		return KvUpdate{Hdr: hdr, Key: key, Value: value, Replica: role}, nil
	case MsgKvRead:
		key, _, err := readString(body)
		if err != nil {
			return nil, fmt.Errorf("wire: KvRead: %w", err)
		}
		return KvRead{Hdr: hdr, Key: key}, nil
	case MsgKvDelete:
		key, _, err := readString(body)
		if err != nil {
			return nil, fmt.Errorf("wire: KvDelete: %w", err)
		}
		return KvDelete{Hdr: hdr, Key: key}, nil
	case MsgKvReply:
		if len(body) < 1 {
			return nil, fmt.Errorf("wire: KvReply missing success byte")
		}
		return KvReply{Hdr: hdr, Success: body[0] != 0}, nil
	case MsgKvReadReply:
		if len(body) < 1 {
			return nil, fmt.Errorf("wire: KvReadReply missing success byte")
		}
		value, _, err := readString(body[1:])
		if err != nil {
			return nil, fmt.Errorf("wire: KvReadReply value: %w", err)
		}
		return KvReadReply{Hdr: hdr, Success: body[0] != 0, Value: value}, nil
	default:
		return nil, fmt.Errorf("wire: unknown msg_type %d", typ)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func readInt64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func appendString(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(b[0:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return "", nil, fmt.Errorf("truncated string body: want %d, have %d", n, len(b))
	}
	return string(b[:n]), b[n:], nil
}

func appendMembers(buf []byte, members []MembershipEntry) []byte {
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(members)))
	buf = append(buf, countBuf[:]...)
	for _, e := range members {
		var idBuf [4]byte
		binary.LittleEndian.PutUint32(idBuf[:], e.ID)
		buf = append(buf, idBuf[:]...)
		var portBuf [2]byte
		binary.LittleEndian.PutUint16(portBuf[:], e.Port)
		buf = append(buf, portBuf[:]...)
		buf = appendInt64(buf, e.Heartbeat)
		buf = appendInt64(buf, e.LastSeen)
	}
	return buf
}

const membershipEntrySize = 4 + 2 + 8 + 8

func readMembers(b []byte) ([]MembershipEntry, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("truncated member count")
	}
	count := binary.LittleEndian.Uint32(b[0:4])
	b = b[4:]
	entries := make([]MembershipEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < membershipEntrySize {
			return nil, nil, fmt.Errorf("truncated member entry %d", i)
		}
		id := binary.LittleEndian.Uint32(b[0:4])
		port := binary.LittleEndian.Uint16(b[4:6])
		heartbeat := readInt64(b[6:14])
		lastSeen := readInt64(b[14:22])
		entries = append(entries, MembershipEntry{ID: id, Port: port, Heartbeat: heartbeat, LastSeen: lastSeen})
		b = b[membershipEntrySize:]
	}
	return entries, b, nil
}
