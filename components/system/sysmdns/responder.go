package sysmdns

import (
	"fmt"
	"sync"

	"github.com/miekg/dns"

	"github.com/open-control-systems/discovery-hub/components/system/sysnet"
)

// Responder answers mDNS queries about locally advertised services.
type Responder struct {
	transport sysnet.Transport

	mu       sync.Mutex
	services []Service
}

// NewResponder is an initialization of Responder.
//
// Parameters:
//   - transport to send answer packets to the multicast group.
func NewResponder(transport sysnet.Transport) *Responder {
	return &Responder{transport: transport}
}

// Register adds the service advertisement.
func (r *Responder) Register(service Service) error {
	if err := service.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.services = append(r.services, service)

	return nil
}

// Services returns all registered advertisements.
func (r *Responder) Services() []Service {
	r.mu.Lock()
	defer r.mu.Unlock()

	services := make([]Service, len(r.services))
	copy(services, r.services)

	return services
}

// HandleQuery answers the questions about the registered services.
//
// A service matches a question when the advertised domain is exactly equal
// to the question domain, case-sensitive, no suffix or wildcard matching.
// The answer is sent to the multicast group only when at least one question
// matched: negative responses are never sent.
func (r *Responder) HandleQuery(msg *dns.Msg) error {
	var answers []dns.RR

	for _, question := range msg.Question {
		for _, service := range r.Services() {
			if dns.Fqdn(service.Domain) != question.Name {
				continue
			}

			if record := service.Record(); record != nil {
				answers = append(answers, record)
			}
		}
	}

	if len(answers) == 0 {
		return nil
	}

	response := &dns.Msg{}
	response.Response = true
	response.Authoritative = true
	response.Answer = answers

	payload, err := response.Pack()
	if err != nil {
		return fmt.Errorf("mdns-responder: failed to pack response: %w", err)
	}

	return r.transport.Send(payload)
}
