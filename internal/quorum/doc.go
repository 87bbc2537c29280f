// Package quorum implements the Coordinator: spec.md §4.3's
// client-side CRUD driver. It keeps the teacher's quorum/timeout
// concern but not its body — the teacher's DoWrite/DoRead block on a
// goroutine fan-out, which spec.md §5 forbids. Here a transaction is
// advanced incrementally as replies arrive across successive ticks.
package quorum
