package transport

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"kvstore/internal/address"
)

// UDP is the real binding for Network, grounded on
// mcastellin-golang-mastery/dns/udp.go's net.ListenUDP / ReadFromUDP /
// WriteToUDP idiom. UDP's best-effort delivery gives spec.md §6's
// may-drop-or-reorder Network contract for free, with no
// application-level retry layered on top.
type UDP struct {
	self      address.Address
	conn      *net.UDPConn
	endpoints map[address.Address]string
	log       *zap.Logger

	mu      sync.Mutex
	pending [][]byte
}

// maxDatagram bounds a single read; every wire message spec.md §6
// defines (header plus a membership snapshot or one KV body) comfortably
// fits well under this.
const maxDatagram = 65536

// NewUDP opens a UDP socket at listenAddr for self and starts
// draining it into the inbound queue. endpoints maps every peer
// Address this binding may be asked to send to, onto its real
// host:port — spec.md's wire Address carries no host, so the caller
// must supply this table (see internal/config.Config.Endpoints).
func NewUDP(self address.Address, listenAddr string, endpoints map[address.Address]string, log *zap.Logger) (*UDP, error) {
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve listen addr %q: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp %q: %w", listenAddr, err)
	}
	u := &UDP{self: self, conn: conn, endpoints: endpoints, log: log}
	go u.readLoop()
	return u, nil
}

func (u *UDP) readLoop() {
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			return // socket closed
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		u.mu.Lock()
		u.pending = append(u.pending, cp)
		u.mu.Unlock()
	}
}

// Send implements Network. A resolve or write failure is logged and
// otherwise swallowed, per spec.md §7: transient network failure is
// recovered by gossip redundancy or coordinator timeout, never
// propagated to the caller.
func (u *UDP) Send(to address.Address, payload []byte) {
	endpoint, ok := u.endpoints[to]
	if !ok {
		return
	}
	raddr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		u.log.Warn("transport: resolve send target failed", zap.String("to", to.String()), zap.Error(err))
		return
	}
	if _, err := u.conn.WriteToUDP(payload, raddr); err != nil {
		u.log.Warn("transport: write failed", zap.String("to", to.String()), zap.Error(err))
	}
}

// Drain implements Network.
func (u *UDP) Drain() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.pending
	u.pending = nil
	return out
}

// LocalAddr implements Network.
func (u *UDP) LocalAddr() address.Address { return u.self }

// Close implements Network: stops the read loop by closing the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
