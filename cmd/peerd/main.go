// Command peerd bootstraps a single cluster peer: it wires the
// injected tick source, UDP transport binding, and zap-backed event
// log around an internal/peer.Peer, then drives its Tick loop forever.
// Configuration is entirely flag-based, per spec.md §6's bootstrap CLI
// requirement — no further runtime configuration is read.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kvstore/internal/address"
	"kvstore/internal/clock"
	"kvstore/internal/config"
	"kvstore/internal/debugapi"
	"kvstore/internal/eventlog"
	"kvstore/internal/peer"
	"kvstore/internal/transport"
)

func main() {
	id := flag.Uint("id", 0, "this peer's numeric id")
	listenAddr := flag.String("listen", "127.0.0.1:0", "UDP listen address host:port")
	introducerID := flag.Uint("introducer-id", 1, "introducer's numeric id")
	introducerAddr := flag.String("introducer-addr", "", "introducer's UDP endpoint host:port (required unless this peer is the introducer)")
	peersFlag := flag.String("peers", "", "comma-separated cluster seed list: id=host:port")
	tickInterval := flag.Duration("tick", 100*time.Millisecond, "tick interval")
	debugAddr := flag.String("debug-addr", "127.0.0.1:8080", "debug HTTP listen address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "peerd: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	selfPort, err := portOf(*listenAddr)
	if err != nil {
		logger.Fatal("invalid -listen", zap.Error(err))
	}
	self := address.New(uint32(*id), selfPort)

	var introducer address.Address
	if uint32(*introducerID) == self.ID {
		introducer = self
	} else {
		if *introducerAddr == "" {
			logger.Fatal("-introducer-addr is required for a non-introducer peer")
		}
		introPort, err := portOf(*introducerAddr)
		if err != nil {
			logger.Fatal("invalid -introducer-addr", zap.Error(err))
		}
		introducer = address.New(uint32(*introducerID), introPort)
	}

	seeds, err := config.ParsePeers(*peersFlag)
	if err != nil {
		logger.Fatal("invalid -peers", zap.Error(err))
	}

	cfg := &config.Config{
		Self:         config.Peer{ID: self.ID, Endpoint: *listenAddr, Port: self.Port},
		Introducer:   config.Peer{ID: introducer.ID, Endpoint: *introducerAddr, Port: introducer.Port},
		Peers:        seeds,
		TickInterval: *tickInterval,
	}
	if introducer.Equal(self) {
		cfg.Introducer = cfg.Self
	}
	endpoints := cfg.Endpoints()

	udpNet, err := transport.NewUDP(self, *listenAddr, endpoints, logger)
	if err != nil {
		logger.Fatal("bind udp transport", zap.Error(err))
	}
	defer udpNet.Close()

	p := peer.New(self, introducer, udpNet, eventlog.New(logger))

	debugSrv := debugapi.NewServer(*debugAddr, p)
	go func() {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("debug server stopped", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	logger.Info("peerd started",
		zap.String("self", self.String()),
		zap.String("introducer", introducer.String()),
		zap.String("listen", *listenAddr),
		zap.String("debug_addr", *debugAddr),
	)

	var now clock.Tick
	for {
		select {
		case <-ctx.Done():
			logger.Info("peerd shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			debugSrv.Shutdown(shutdownCtx)
			return
		case <-ticker.C:
			now++
			p.Tick(now)
		}
	}
}

func portOf(endpoint string) (uint16, error) {
	_, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return 0, fmt.Errorf("split host:port: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse port: %w", err)
	}
	return uint16(port), nil
}
