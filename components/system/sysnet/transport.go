package sysnet

// Transport sends raw payloads over the network.
type Transport interface {
	// Send sends the payload over the network.
	Send(payload []byte) error
}
