// Package transport owns the node's UDP socket: a blocking read loop that
// feeds inbound datagrams to the routing core, and the outbound send path.
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"

	"github.com/zde37/halo/internal/dht"
	"github.com/zde37/halo/pkg"
)

// Handler consumes one inbound datagram. The dht.Node implements it.
type Handler interface {
	HandleDatagram(data []byte, from netip.AddrPort) error
}

// UDPTransport is one UDP socket per node. Reads happen on a single
// goroutine driven by Serve; sends may come from any goroutine. Send and
// receive failures are surfaced as errors, never fatal to the process.
type UDPTransport struct {
	conn    *net.UDPConn
	handler Handler
	logger  *pkg.Logger
	closed  atomic.Bool
}

// NewUDPTransport binds host:port and prepares the transport. Port 0 binds
// an ephemeral port; use LocalAddr to discover it.
func NewUDPTransport(host string, port int, handler Handler, logger *pkg.Logger) (*UDPTransport, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	udpAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("resolve %s:%d: %w", host, port, err)
	}

	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", udpAddr, err)
	}

	t := &UDPTransport{
		conn:    conn,
		handler: handler,
		logger:  logger.WithFields(pkg.Fields{"component": "udp_transport"}),
	}

	t.logger.Info().
		Str("address", conn.LocalAddr().String()).
		Msg("UDP transport bound")

	return t, nil
}

// LocalAddr returns the bound UDP endpoint.
func (t *UDPTransport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Serve blocks on the socket, handing each datagram to the handler, until
// Close is called. Handler errors are logged and the loop continues; only a
// socket failure ends it.
func (t *UDPTransport) Serve() error {
	buf := make([]byte, 64*1024)
	for {
		n, src, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				t.logger.Debug().Msg("UDP read loop stopped")
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}

		if err := t.handler.HandleDatagram(buf[:n], src); err != nil {
			t.logger.Warn().
				Err(err).
				Str("from", src.String()).
				Msg("Dropping datagram")
		}
	}
}

// Send encodes and transmits one message to the given peer. It implements
// dht.Sender.
func (t *UDPTransport) Send(msg dht.Message, to dht.Peer) error {
	if t.closed.Load() {
		return pkg.ErrTransportClosed
	}

	if _, err := t.conn.WriteToUDPAddrPort(msg.Encode(), to.AddrPort()); err != nil {
		return fmt.Errorf("udp write to %s: %w", to.AddrPort(), err)
	}

	t.logger.Debug().
		Str("type", msg.Type.String()).
		Str("to", to.AddrPort().String()).
		Msg("Message sent")

	return nil
}

// Close shuts the socket down and unblocks Serve.
func (t *UDPTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	t.logger.Info().Msg("Closing UDP transport")
	return t.conn.Close()
}

// Ensure UDPTransport implements the dht.Sender interface at compile time.
var _ dht.Sender = (*UDPTransport)(nil)
