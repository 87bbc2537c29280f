// Package config parses the CLI-supplied cluster seed list and holds
// the bootstrap parameters internal/peer needs to start ticking.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"kvstore/internal/address"
)

// Peer is one entry of the cluster seed list: a numeric node id plus
// the real UDP endpoint it listens on. The id and the endpoint's port
// together form the Address this peer is known by on the ring and in
// gossip (spec.md §3) — the endpoint's host is transport-only and
// never appears in any wire message.
type Peer struct {
	ID       uint32
	Endpoint string
	Port     uint16
}

// Address returns the peer's gossip/ring identity.
func (p Peer) Address() address.Address {
	return address.New(p.ID, p.Port)
}

// Config holds one peer's full bootstrap configuration.
type Config struct {
	Self         Peer
	Introducer   Peer
	Peers        []Peer
	TickInterval time.Duration
}

// ParsePeers parses a comma-separated seed list in the format
// "id1=host1:port1,id2=host2:port2,...".
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid peer format: %s (expected id=host:port)", part)
		}

		idStr := strings.TrimSpace(kv[0])
		endpoint := strings.TrimSpace(kv[1])
		if idStr == "" || endpoint == "" {
			return nil, fmt.Errorf("peer id and endpoint cannot be empty: %s", part)
		}

		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid peer id %q: %w", idStr, err)
		}

		_, portStr, err := net.SplitHostPort(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid peer endpoint %q: %w", endpoint, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid peer port %q: %w", portStr, err)
		}

		peers = append(peers, Peer{ID: uint32(id), Endpoint: endpoint, Port: uint16(port)})
	}

	return peers, nil
}

// Endpoints builds the Address -> real UDP endpoint table
// internal/transport needs to send to a peer it only knows by Address
// (spec.md's wire Address carries no host).
func (c *Config) Endpoints() map[address.Address]string {
	m := make(map[address.Address]string, len(c.Peers)+2)
	m[c.Self.Address()] = c.Self.Endpoint
	if c.Introducer.Endpoint != "" {
		m[c.Introducer.Address()] = c.Introducer.Endpoint
	}
	for _, p := range c.Peers {
		m[p.Address()] = p.Endpoint
	}
	return m
}
