// Package stabilizer implements the repair procedure spec.md §4.5
// describes: whenever the ring's peer order changes, every peer
// recomputes the replica triple for each key it holds locally and
// reconciles its role and the remote copies against the new triple.
//
// The teacher repo has no stabilization package at all (MP2Node.h's
// stabilizationProtocol() is an unimplemented stub in original_source/),
// so the reconciliation algorithm here is derived directly from
// spec.md §4.5's invariant rather than from any source file, per
// spec.md §9's instruction not to guess stabilization behavior from
// the stub. What is grounded on the teacher is the shape: neighbor
// caches (has_my_replicas, have_replicas_of) sized from ring.Ring's
// successor/predecessor helpers, and repair messages built with the
// same wire.KvCreate/wire.KvDelete types the coordinator uses, tagged
// with transaction ids drawn from a range the Coordinator's own
// counter never reaches so replies are absorbed silently by
// quorum.Coordinator.IngestReply's existing unknown-id-drop path.
package stabilizer
