package sysmdns

import (
	"fmt"
	"net"

	"github.com/miekg/dns"

	"github.com/open-control-systems/discovery-hub/components/status"
)

// Service is a single local service advertisement.
//
// Remarks:
//   - A service is write-once: once registered it's never mutated by the
//     network traffic. Registering an equal service one more time adds one
//     more advertisement.
type Service struct {
	// Domain is an advertised domain name, e.g. "bonsai-growlab.local".
	Domain string `json:"domain"`

	// Type is a DNS record type of the advertisement: A, PTR or TXT.
	Type uint16 `json:"type"`

	// TTL is a record time-to-live, in seconds.
	//
	// Remarks:
	//   - TTL is carried on the wire but never enforced: records don't expire.
	TTL uint32 `json:"ttl"`

	// IP is an IPv4 address, required for A advertisements.
	IP net.IP `json:"ip,omitempty"`

	// Target is a target domain name, required for PTR advertisements,
	// e.g. "_impl._tcp.local".
	Target string `json:"target,omitempty"`

	// Text is a list of key=value entries, used for TXT advertisements.
	Text []string `json:"text,omitempty"`
}

// Validate verifies that the advertisement is well-formed.
func (s Service) Validate() error {
	if s.Domain == "" {
		return fmt.Errorf("service: missed domain: %w", status.StatusInvalidArg)
	}

	switch s.Type {
	case dns.TypeA:
		if s.IP.To4() == nil {
			return fmt.Errorf("service: domain=%s: A advertisement requires"+
				" an IPv4 address: %w", s.Domain, status.StatusInvalidArg)
		}

	case dns.TypePTR:
		if s.Target == "" {
			return fmt.Errorf("service: domain=%s: PTR advertisement requires"+
				" a target: %w", s.Domain, status.StatusInvalidArg)
		}

	case dns.TypeTXT:

	default:
		return fmt.Errorf("service: domain=%s: record type %d: %w",
			s.Domain, s.Type, status.StatusNotSupported)
	}

	return nil
}

// Record returns the DNS resource record for the advertisement.
func (s Service) Record() dns.RR {
	hdr := dns.RR_Header{
		Name:   dns.Fqdn(s.Domain),
		Rrtype: s.Type,
		Class:  dns.ClassINET,
		Ttl:    s.TTL,
	}

	switch s.Type {
	case dns.TypeA:
		return &dns.A{Hdr: hdr, A: s.IP.To4()}

	case dns.TypePTR:
		return &dns.PTR{Hdr: hdr, Ptr: dns.Fqdn(s.Target)}

	case dns.TypeTXT:
		return &dns.TXT{Hdr: hdr, Txt: s.Text}

	default:
		return nil
	}
}
