package debugapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kvstore/internal/peer"
)

// minHealthyPeers mirrors the teacher's gRPC Health check: fewer than
// two alive members (including self) means quorum writes can no
// longer reach two distinct replicas.
const minHealthyPeers = 2

// Handler serves read-only introspection views over one peer's state.
type Handler struct {
	peer *peer.Peer
}

// NewHandler creates a Handler over p.
func NewHandler(p *peer.Peer) *Handler {
	return &Handler{peer: p}
}

// Register attaches the handler's routes to r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET("/membership", h.Membership)
	r.GET("/ring", h.Ring)
}

// Healthz reports OK/DEGRADED based on live peer count, plus bootstrap
// and pending-transaction state.
func (h *Handler) Healthz(c *gin.Context) {
	live := h.peer.LivePeers()
	status := "OK"
	if len(live) < minHealthyPeers {
		status = "DEGRADED"
	}
	c.JSON(http.StatusOK, gin.H{
		"self":         h.peer.Self().String(),
		"status":       status,
		"in_group":     h.peer.InGroup(),
		"live_peers":   len(live),
		"pending_txns": h.peer.PendingTransactions(),
		"stored_keys":  h.peer.StoreLen(),
	})
}

// Membership reports the current live_peers() view.
func (h *Handler) Membership(c *gin.Context) {
	live := h.peer.LivePeers()
	addrs := make([]string, len(live))
	for i, a := range live {
		addrs[i] = a.String()
	}
	c.JSON(http.StatusOK, gin.H{
		"self":       h.peer.Self().String(),
		"live_peers": addrs,
	})
}

// Ring reports the current ring order.
func (h *Handler) Ring(c *gin.Context) {
	nodes := h.peer.RingNodes()
	out := make([]gin.H, len(nodes))
	for i, n := range nodes {
		out[i] = gin.H{"addr": n.Addr.String(), "hash": n.Hash}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": out})
}
