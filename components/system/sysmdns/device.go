package sysmdns

import (
	"net"
	"strings"

	"github.com/miekg/dns"
)

// Device is a single remote peer reconstructed from mDNS resource records,
// possibly across several packets and several queries.
type Device struct {
	// Addr is an IPv4 address of the device, the unique device identifier.
	Addr net.IP `json:"addr"`

	// Services is a list of service names the device has announced.
	Services []string `json:"services,omitempty"`

	// Domain is the device domain name, from the most recent A record.
	Domain string `json:"domain,omitempty"`

	// Payload is a key-value mapping, from the most recent TXT record.
	Payload map[string]string `json:"payload,omitempty"`
}

// NewDevice creates a device with only the address set.
func NewDevice(addr net.IP) Device {
	return Device{Addr: addr}
}

// ResolveRecords folds DNS resource records into the device description.
//
// A PTR record extends the announced services with its target name and its
// own domain name. An A record sets the device domain. A TXT record replaces
// the payload: each entry is parsed as key=value, split on the first "=",
// the key is lower-cased, the value is trimmed, malformed entries are
// skipped. All other record types leave the device unchanged.
//
// Remarks:
//   - The receiver isn't modified, an updated copy is returned.
func (d Device) ResolveRecords(records []dns.RR) Device {
	for _, record := range records {
		switch rec := record.(type) {
		case *dns.PTR:
			d = d.withService(trimDot(rec.Ptr))
			d = d.withService(trimDot(rec.Hdr.Name))

		case *dns.A:
			d.Domain = trimDot(rec.Hdr.Name)

		case *dns.TXT:
			d.Payload = parseTextEntries(rec.Txt)

		default:
		}
	}

	return d
}

// MatchNamespace returns true if any announced service name ends with the namespace.
func (d Device) MatchNamespace(namespace string) bool {
	for _, service := range d.Services {
		if strings.HasSuffix(service, namespace) {
			return true
		}
	}

	return false
}

func (d Device) withService(name string) Device {
	if name == "" {
		return d
	}

	for _, service := range d.Services {
		if service == name {
			return d
		}
	}

	services := make([]string, 0, len(d.Services)+1)
	services = append(services, d.Services...)
	services = append(services, name)

	d.Services = services

	return d
}

func parseTextEntries(entries []string) map[string]string {
	payload := make(map[string]string)

	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}

		payload[strings.ToLower(parts[0])] = strings.TrimSpace(parts[1])
	}

	return payload
}

func trimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}
