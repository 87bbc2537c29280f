package transport

import "kvstore/internal/address"

// Network is the injected collaborator spec.md §6 names: send is
// fire-and-forget and may drop; Drain delivers everything queued for
// this peer since the last call, in FIFO arrival order (spec.md §5:
// "inbound messages are processed in FIFO order... no reordering").
type Network interface {
	// Send transmits payload from this peer to to. Errors are logged,
	// never propagated to the caller — spec.md §7 classifies send
	// failure as a transient network failure recovered by gossip
	// redundancy or coordinator timeout, not a reportable error.
	Send(to address.Address, payload []byte)

	// Drain pops every datagram queued for this peer, oldest first,
	// and clears the queue.
	Drain() [][]byte

	// LocalAddr reports the address this Network delivers to.
	LocalAddr() address.Address

	// Close releases any underlying resources (sockets, goroutines).
	Close() error
}
