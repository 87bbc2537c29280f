// Package gossip implements the Membership & Failure Detector (MFD): a
// SWIM-style protocol maintaining a per-peer membership list with
// heartbeats, local suspicion, and eventual eviction (spec.md §4.1).
//
// Unlike the teacher's probe/gossip goroutine-and-ticker loops, this
// package runs synchronously: every mutation happens inside a call
// driven by the peer's own Tick, never on a background timer.
//
// Limitations: this package moves no data on membership change (key
// handoff after a ring change is internal/stabilizer's job), there is
// no anti-entropy beyond gossip, and suspected peers are excluded from
// the ring.
package gossip
