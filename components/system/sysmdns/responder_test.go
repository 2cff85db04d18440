package sysmdns

import (
	"net"
	"sync"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/discovery-hub/components/status"
)

type testResponderTransport struct {
	mu       sync.Mutex
	err      error
	payloads [][]byte
}

func (t *testResponderTransport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return t.err
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)

	t.payloads = append(t.payloads, buf)

	return nil
}

func (t *testResponderTransport) sendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.payloads)
}

func (t *testResponderTransport) lastMsg(test *testing.T) *dns.Msg {
	t.mu.Lock()
	defer t.mu.Unlock()

	require.NotEmpty(test, t.payloads)

	msg := &dns.Msg{}
	require.Nil(test, msg.Unpack(t.payloads[len(t.payloads)-1]))

	return msg
}

func makeQuery(domains ...string) *dns.Msg {
	msg := &dns.Msg{}

	for _, domain := range domains {
		msg.Question = append(msg.Question, dns.Question{
			Name:   dns.Fqdn(domain),
			Qtype:  dns.TypePTR,
			Qclass: dns.ClassINET,
		})
	}

	return msg
}

func TestResponderRegisterInvalidService(t *testing.T) {
	responder := NewResponder(&testResponderTransport{})

	require.ErrorIs(t, responder.Register(Service{
		Type: dns.TypeA,
		IP:   net.IPv4(10, 0, 0, 5),
	}), status.StatusInvalidArg)

	require.ErrorIs(t, responder.Register(Service{
		Domain: "foo.local",
		Type:   dns.TypeA,
	}), status.StatusInvalidArg)

	require.ErrorIs(t, responder.Register(Service{
		Domain: "_svc._tcp.local",
		Type:   dns.TypePTR,
	}), status.StatusInvalidArg)

	require.ErrorIs(t, responder.Register(Service{
		Domain: "foo.local",
		Type:   dns.TypeSRV,
	}), status.StatusNotSupported)

	require.Empty(t, responder.Services())
}

func TestResponderAnswerExactMatch(t *testing.T) {
	transport := &testResponderTransport{}
	responder := NewResponder(transport)

	require.Nil(t, responder.Register(Service{
		Domain: "foo.local",
		Type:   dns.TypeA,
		TTL:    120,
		IP:     net.IPv4(10, 0, 0, 5),
	}))

	require.Nil(t, responder.HandleQuery(makeQuery("foo.local")))
	require.Equal(t, 1, transport.sendCount())

	msg := transport.lastMsg(t)
	require.True(t, msg.Response)
	require.True(t, msg.Authoritative)
	require.Equal(t, dns.RcodeSuccess, msg.Rcode)
	require.Equal(t, 1, len(msg.Answer))

	record, ok := msg.Answer[0].(*dns.A)
	require.True(t, ok)
	require.Equal(t, "foo.local.", record.Hdr.Name)
	require.Equal(t, uint32(120), record.Hdr.Ttl)
	require.Equal(t, uint16(dns.ClassINET), record.Hdr.Class)
	require.True(t, record.A.Equal(net.IPv4(10, 0, 0, 5)))
}

func TestResponderNoAnswerForForeignDomain(t *testing.T) {
	transport := &testResponderTransport{}
	responder := NewResponder(transport)

	require.Nil(t, responder.Register(Service{
		Domain: "foo.local",
		Type:   dns.TypeA,
		TTL:    120,
		IP:     net.IPv4(10, 0, 0, 5),
	}))

	for _, domain := range []string{
		"bar.local",
		"oo.local",
		"afoo.local",
		"foo.local.sub",
		"Foo.local",
		"foo",
	} {
		require.Nil(t, responder.HandleQuery(makeQuery(domain)))
		require.Equal(t, 0, transport.sendCount())
	}
}

func TestResponderAnswerPtr(t *testing.T) {
	transport := &testResponderTransport{}
	responder := NewResponder(transport)

	require.Nil(t, responder.Register(Service{
		Domain: "_svc._tcp.local",
		Type:   dns.TypePTR,
		TTL:    4500,
		Target: "_impl._tcp.local",
	}))

	require.Nil(t, responder.HandleQuery(makeQuery("_svc._tcp.local")))
	require.Equal(t, 1, transport.sendCount())

	msg := transport.lastMsg(t)
	require.Equal(t, 1, len(msg.Answer))

	record, ok := msg.Answer[0].(*dns.PTR)
	require.True(t, ok)
	require.Equal(t, "_svc._tcp.local.", record.Hdr.Name)
	require.Equal(t, "_impl._tcp.local.", record.Ptr)
}

func TestResponderAnswerTxt(t *testing.T) {
	transport := &testResponderTransport{}
	responder := NewResponder(transport)

	require.Nil(t, responder.Register(Service{
		Domain: "foo.local",
		Type:   dns.TypeTXT,
		TTL:    120,
		Text:   []string{"version=2", "role=edge"},
	}))

	require.Nil(t, responder.HandleQuery(makeQuery("foo.local")))

	msg := transport.lastMsg(t)
	require.Equal(t, 1, len(msg.Answer))

	record, ok := msg.Answer[0].(*dns.TXT)
	require.True(t, ok)
	require.Equal(t, []string{"version=2", "role=edge"}, record.Txt)
}

func TestResponderAnswerMultipleQuestions(t *testing.T) {
	transport := &testResponderTransport{}
	responder := NewResponder(transport)

	require.Nil(t, responder.Register(Service{
		Domain: "foo.local",
		Type:   dns.TypeA,
		TTL:    120,
		IP:     net.IPv4(10, 0, 0, 5),
	}))
	require.Nil(t, responder.Register(Service{
		Domain: "_svc._tcp.local",
		Type:   dns.TypePTR,
		TTL:    4500,
		Target: "_impl._tcp.local",
	}))

	require.Nil(t, responder.HandleQuery(makeQuery("foo.local", "_svc._tcp.local", "bar.local")))
	require.Equal(t, 1, transport.sendCount())

	msg := transport.lastMsg(t)
	require.Equal(t, 2, len(msg.Answer))
}

func TestResponderDuplicateRegistration(t *testing.T) {
	transport := &testResponderTransport{}
	responder := NewResponder(transport)

	service := Service{
		Domain: "foo.local",
		Type:   dns.TypeA,
		TTL:    120,
		IP:     net.IPv4(10, 0, 0, 5),
	}

	require.Nil(t, responder.Register(service))
	require.Nil(t, responder.Register(service))
	require.Equal(t, 2, len(responder.Services()))

	require.Nil(t, responder.HandleQuery(makeQuery("foo.local")))

	msg := transport.lastMsg(t)
	require.Equal(t, 2, len(msg.Answer))
}
