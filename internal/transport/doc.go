// Package transport implements the injected Network collaborator
// spec.md §6 describes: a fire-and-forget send plus a per-peer inbound
// FIFO queue drained once per tick. The real binding is UDP
// (mcastellin-golang-mastery/dns/udp.go's net.ListenUDP/ReadFromUDP
// idiom), which naturally gives the may-drop-or-reorder-at-the-wire
// semantics §6 specifies with no application-level retry layered on
// top. An in-memory Sim implementation of the same interface drives
// internal/peer's tests without a real socket.
package transport
