package debugapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kvstore/internal/peer"
)

// NewServer builds a release-mode gin router exposing h's routes over
// p and wraps it in an *http.Server bound to addr, matching
// ppriyankuu-godkv/cmd/server/main.go's gin.SetMode(gin.ReleaseMode)
// bootstrap shape.
func NewServer(addr string, p *peer.Peer) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	NewHandler(p).Register(router)

	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
