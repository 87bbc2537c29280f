// Package address implements the fixed 6-byte peer identifier used
// across the membership and replication layers.
package address

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Size is the wire length of an Address: a 4-byte id plus a 2-byte port.
const Size = 6

// Address identifies a peer: a 4-byte id and a 2-byte port, compared
// and ordered by their raw bytes.
type Address struct {
	ID   uint32
	Port uint16
}

// New builds an Address from an id and a port.
func New(id uint32, port uint16) Address {
	return Address{ID: id, Port: port}
}

// Bytes encodes the address into its 6-byte little-endian wire form.
func (a Address) Bytes() [Size]byte {
	var b [Size]byte
	binary.LittleEndian.PutUint32(b[0:4], a.ID)
	binary.LittleEndian.PutUint16(b[4:6], a.Port)
	return b
}

// FromBytes decodes a 6-byte wire form into an Address.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Size {
		return Address{}, fmt.Errorf("address: want %d bytes, got %d", Size, len(b))
	}
	return Address{
		ID:   binary.LittleEndian.Uint32(b[0:4]),
		Port: binary.LittleEndian.Uint16(b[4:6]),
	}, nil
}

// Equal reports whether two addresses are identical.
func (a Address) Equal(other Address) bool {
	return a.ID == other.ID && a.Port == other.Port
}

// Less orders addresses by raw bytes, used to break hash ties on the ring.
func (a Address) Less(other Address) bool {
	ab, ob := a.Bytes(), other.Bytes()
	return bytes.Compare(ab[:], ob[:]) < 0
}

// Canonical returns the "id:port" textual form spec.md §4.2 hashes for
// ring placement.
func (a Address) Canonical() string {
	return fmt.Sprintf("%d:%d", a.ID, a.Port)
}

func (a Address) String() string {
	return a.Canonical()
}

// Zero is the empty address, used to represent "no address" in
// contexts (e.g. uninitialized self) where an option type would
// otherwise be used.
var Zero = Address{}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}
