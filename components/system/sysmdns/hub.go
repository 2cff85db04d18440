package sysmdns

import (
	"fmt"
	"net"
	"sync"

	"github.com/miekg/dns"

	"github.com/open-control-systems/discovery-hub/components/core"
	"github.com/open-control-systems/discovery-hub/components/status"
	"github.com/open-control-systems/discovery-hub/components/system/sysnet"
)

// Hub is the mDNS discovery state machine.
//
// The hub owns the set of issued queries and the registry of discovered
// devices, all state updates are serialized. Inbound packets are classified
// into queries, answered by the responder, and responses, folded into the
// registry. Each device first qualifying for a namespace bucket is published
// to the device handler exactly once.
type Hub struct {
	transport      sysnet.Transport
	responder      *Responder
	deviceHandler  DeviceHandler
	resolveHandler sysnet.ResolveHandler

	mu       sync.Mutex
	queried  map[string]struct{}
	queries  []string
	registry Registry
}

// HubParams represents various hub options.
type HubParams struct {
	// Registry is an initial registry state, e.g. restored from the
	// persistent storage.
	Registry Registry
}

// NewHub is an initialization of Hub.
//
// Parameters:
//   - transport to send query packets to the multicast group.
//   - responder to answer queries about local services.
//   - deviceHandler to be notified about claimed devices.
//   - resolveHandler to be notified about resolved device domains, can be nil.
//   - params - various hub options.
func NewHub(
	transport sysnet.Transport,
	responder *Responder,
	deviceHandler DeviceHandler,
	resolveHandler sysnet.ResolveHandler,
	params HubParams,
) *Hub {
	registry := params.Registry
	if registry == nil {
		registry = Registry{}
	}

	return &Hub{
		transport:      transport,
		responder:      responder,
		deviceHandler:  deviceHandler,
		resolveHandler: resolveHandler,
		queried:        make(map[string]struct{}),
		registry:       registry,
	}
}

// RegisterService registers the local service advertisement.
func (h *Hub) RegisterService(service Service) error {
	return h.responder.Register(service)
}

// Services returns all registered local advertisements.
func (h *Hub) Services() []Service {
	return h.responder.Services()
}

// Query sends an mDNS PTR query for the namespace and marks it as active.
//
// Remarks:
//   - The set of active namespaces grows monotonically: there is no un-query.
//   - Re-querying an active namespace still sends a fresh packet on the wire.
func (h *Hub) Query(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("mdns-hub: missed namespace: %w", status.StatusInvalidArg)
	}

	msg := &dns.Msg{}
	msg.Question = []dns.Question{{
		Name:   dns.Fqdn(namespace),
		Qtype:  dns.TypePTR,
		Qclass: dns.ClassINET,
	}}

	payload, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("mdns-hub: failed to pack query: namespace=%s: %w",
			namespace, err)
	}

	h.mu.Lock()
	if _, ok := h.queried[namespace]; !ok {
		h.queried[namespace] = struct{}{}
		h.queries = append(h.queries, namespace)
	}
	h.mu.Unlock()

	return h.transport.Send(payload)
}

// Queries returns all namespaces with issued queries.
func (h *Hub) Queries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	queries := make([]string, len(h.queries))
	copy(queries, h.queries)

	return queries
}

// Registry returns a snapshot of discovered devices.
//
// Remarks:
//   - The snapshot is read-only: later updates produce new registry values.
func (h *Hub) Registry() Registry {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.registry
}

// HandlePacket classifies the received packet as a query or a response.
//
// Remarks:
//   - Malformed packets are dropped.
//   - Responses from non-IPv4 sources are ignored.
func (h *Hub) HandlePacket(addr net.Addr, payload []byte) {
	msg := &dns.Msg{}
	if err := msg.Unpack(payload); err != nil {
		return
	}

	if msg.Response {
		h.handleResponse(addr, msg)

		return
	}

	if err := h.responder.HandleQuery(msg); err != nil {
		core.LogErr.Printf("mdns-hub: failed to answer query: src=%s err=%v\n",
			addr, err)
	}
}

func (h *Hub) handleResponse(addr net.Addr, msg *dns.Msg) {
	ip := sourceIP(addr)
	if ip == nil {
		return
	}

	records := make([]dns.RR, 0, len(msg.Answer)+len(msg.Extra))
	records = append(records, msg.Answer...)
	records = append(records, msg.Extra...)

	h.mu.Lock()

	device, ok := h.registry.Find(ip)
	if !ok {
		device = NewDevice(ip)
	}

	device = device.ResolveRecords(records)

	registry, claims := h.registry.Merge(h.queries, device)
	h.registry = registry

	h.mu.Unlock()

	for _, claim := range claims {
		core.LogInf.Printf("mdns-hub: device claimed: namespace=%s addr=%s domain=%s\n",
			claim.Namespace, claim.Device.Addr, claim.Device.Domain)

		if h.deviceHandler != nil {
			if err := h.deviceHandler.HandleDevice(claim.Namespace, claim.Device); err != nil {
				core.LogErr.Printf("mdns-hub: failed to handle claim:"+
					" namespace=%s addr=%s err=%v\n",
					claim.Namespace, claim.Device.Addr, err)
			}
		}
	}

	if h.resolveHandler != nil && device.Domain != "" {
		h.resolveHandler.HandleResolve(device.Domain, &net.IPAddr{IP: device.Addr})
	}
}

// sourceIP returns the IPv4 address of the packet source, nil for any other
// address family.
func sourceIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.To4()

	case *net.IPAddr:
		return a.IP.To4()

	default:
		return nil
	}
}
