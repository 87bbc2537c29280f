// Package ring implements the consistent hashing ring that maps keys
// and live peer addresses onto a single shared [0, RING_SIZE) space,
// one position per peer (spec.md §3/§4.2 — no virtual nodes).
package ring
