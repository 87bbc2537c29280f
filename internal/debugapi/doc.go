// Package debugapi exposes read-only HTTP introspection over a
// running peer's snapshotted state: GET /healthz, /membership, /ring.
// It is grounded on AryanBagade-dynamoDB/internal/api/handler.go's
// GetStatus/GetRing gin.Context handlers and on the teacher's gRPC
// Health DEGRADED-if-fewer-than-2-alive rule
// (ismaiel54-kvstore/internal/gossip/server.go), carried over as the
// /healthz threshold. Every handler reads state that already exists
// for other reasons; nothing here is a second source of truth and
// nothing here runs on the tick path.
package debugapi
