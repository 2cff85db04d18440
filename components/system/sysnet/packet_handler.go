package sysnet

import "net"

// PacketHandler to handle packets received from the network.
type PacketHandler interface {
	// HandlePacket handles a single packet received from addr.
	HandlePacket(addr net.Addr, payload []byte)
}
