// Package peer wires every other package in this module into the
// single-threaded, run-to-completion actor spec.md §5 and §9 require:
// one Tick per logical time step, no shared state across peers, no
// operation that suspends mid-tick. This is the concrete realization
// of spec.md §9's re-architecture note ("the natural realization is an
// actor: one task per peer with a single mailbox"), shaped after the
// teacher's internal/node.go ("one struct wires every subsystem
// together") but driven by Tick() rather than gRPC handlers.
package peer
