package sysnet

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/open-control-systems/discovery-hub/components/core"
)

const (
	// DefaultMulticastGroup is the well-known mDNS IPv4 multicast group.
	DefaultMulticastGroup = "224.0.0.251"

	// DefaultMulticastPort is the well-known mDNS port.
	DefaultMulticastPort = 5353

	defaultReadBufferSize = 65536
)

// MulticastTransportParams represents various options for the multicast transport.
type MulticastTransportParams struct {
	// Group is an IPv4 multicast group address, DefaultMulticastGroup if empty.
	Group string

	// Port is an UDP port, DefaultMulticastPort if zero.
	Port int

	// ReadBufferSize is a socket read buffer size, in bytes.
	ReadBufferSize int
}

// MulticastTransport is an IPv4 UDP multicast socket.
//
// It joins the configured multicast group, delivers every received packet to
// the provided handler and sends payloads to the same group. Packets sent by
// the local host aren't filtered out, the handler may see its own traffic.
type MulticastTransport struct {
	params MulticastTransportParams
	group  *net.UDPAddr
	conn   *net.UDPConn
	doneCh chan struct{}

	mu      sync.Mutex
	handler PacketHandler
	started bool
	closed  bool
}

// NewMulticastTransport is an initialization of MulticastTransport.
//
// Parameters:
//   - params - various multicast transport options.
func NewMulticastTransport(params MulticastTransportParams) (*MulticastTransport, error) {
	if params.Group == "" {
		params.Group = DefaultMulticastGroup
	}
	if params.Port == 0 {
		params.Port = DefaultMulticastPort
	}
	if params.ReadBufferSize == 0 {
		params.ReadBufferSize = defaultReadBufferSize
	}

	group, err := net.ResolveUDPAddr("udp4",
		net.JoinHostPort(params.Group, strconv.Itoa(params.Port)))
	if err != nil {
		return nil, fmt.Errorf("multicast-transport: failed to resolve group: %w", err)
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("multicast-transport: failed to join group %s: %w",
			group, err)
	}

	if err := conn.SetReadBuffer(params.ReadBufferSize); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("multicast-transport: failed to set read buffer: %w", err)
	}

	packetConn := ipv4.NewPacketConn(conn)

	if err := packetConn.SetMulticastLoopback(true); err != nil {
		core.LogWrn.Printf("multicast-transport: failed to enable loopback: %v\n", err)
	}

	return &MulticastTransport{
		params: params,
		group:  group,
		conn:   conn,
		doneCh: make(chan struct{}),
	}, nil
}

// SetPacketHandler sets the handler to receive packets from the network.
//
// Remarks:
//   - Should be called before Start(), packets received without a handler
//     are dropped.
func (t *MulticastTransport) SetPacketHandler(handler PacketHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handler = handler
}

// Start begins asynchronous packet receiving.
func (t *MulticastTransport) Start() {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	go t.run()
}

// Send sends the payload to the multicast group.
func (t *MulticastTransport) Send(payload []byte) error {
	n, err := t.conn.WriteToUDP(payload, t.group)
	if err != nil {
		return fmt.Errorf("multicast-transport: failed to send: %w", err)
	}

	if n != len(payload) {
		return fmt.Errorf("multicast-transport: partial send: %d/%d bytes",
			n, len(payload))
	}

	return nil
}

// Close closes the underlying socket and waits for the receiving to finish.
//
// Remarks:
//   - Safe to call even if Start() was never called.
func (t *MulticastTransport) Close() error {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return nil
	}
	t.closed = true
	started := t.started
	t.mu.Unlock()

	err := t.conn.Close()

	if started {
		<-t.doneCh
	}

	return err
}

func (t *MulticastTransport) run() {
	defer close(t.doneCh)

	buf := make([]byte, t.params.ReadBufferSize)

	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || t.isClosed() {
				return
			}

			core.LogWrn.Printf("multicast-transport: failed to receive: %v\n", err)

			continue
		}

		handler := t.getHandler()
		if handler == nil {
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		handler.HandlePacket(addr, payload)
	}
}

func (t *MulticastTransport) getHandler() PacketHandler {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.handler
}

func (t *MulticastTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}
