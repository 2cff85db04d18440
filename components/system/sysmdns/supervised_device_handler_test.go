package sysmdns

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/discovery-hub/components/status"
)

type testSupervisedDeviceHandler struct {
	mu         sync.Mutex
	err        error
	panicCount int
	namespaces []string
}

func (h *testSupervisedDeviceHandler) HandleDevice(namespace string, _ Device) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.panicCount > 0 {
		h.panicCount--

		panic("handler crashed")
	}

	h.namespaces = append(h.namespaces, namespace)

	return h.err
}

func (h *testSupervisedDeviceHandler) handleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.namespaces)
}

func TestSupervisedDeviceHandlerDeliver(t *testing.T) {
	handler := &testSupervisedDeviceHandler{}

	supervised := NewSupervisedDeviceHandler(handler, 0)
	supervised.Start()

	device := makeDevice(net.IPv4(10, 0, 0, 5), "_svc._tcp.local")

	require.Nil(t, supervised.HandleDevice("_tcp.local", device))
	require.Nil(t, supervised.Close())

	require.Equal(t, 1, handler.handleCount())
}

func TestSupervisedDeviceHandlerRecoverAfterPanic(t *testing.T) {
	handler := &testSupervisedDeviceHandler{panicCount: 1}

	supervised := NewSupervisedDeviceHandler(handler, 0)
	supervised.Start()

	device := makeDevice(net.IPv4(10, 0, 0, 5), "_svc._tcp.local")

	// The first delivery crashes the handler, the second is still delivered.
	require.Nil(t, supervised.HandleDevice("_tcp.local", device))
	require.Nil(t, supervised.HandleDevice("_udp.local", device))
	require.Nil(t, supervised.Close())

	require.Equal(t, 1, handler.handleCount())
	require.Equal(t, []string{"_udp.local"}, handler.namespaces)
}

func TestSupervisedDeviceHandlerHandlerError(t *testing.T) {
	handler := &testSupervisedDeviceHandler{err: status.StatusError}

	supervised := NewSupervisedDeviceHandler(handler, 0)
	supervised.Start()

	device := makeDevice(net.IPv4(10, 0, 0, 5), "_svc._tcp.local")

	// Handler errors are logged, never propagated to the notifier.
	require.Nil(t, supervised.HandleDevice("_tcp.local", device))
	require.Nil(t, supervised.Close())

	require.Equal(t, 1, handler.handleCount())
}

func TestSupervisedDeviceHandlerQueueOverflow(t *testing.T) {
	handler := &testSupervisedDeviceHandler{}

	queueSize := 4
	supervised := NewSupervisedDeviceHandler(handler, queueSize)

	device := makeDevice(net.IPv4(10, 0, 0, 5), "_svc._tcp.local")

	// Delivery isn't started yet: overflowing events are dropped, the
	// notifier is never blocked.
	for n := 0; n < queueSize*2; n++ {
		require.Nil(t, supervised.HandleDevice("_tcp.local", device))
	}

	supervised.Start()
	require.Nil(t, supervised.Close())

	require.Equal(t, queueSize, handler.handleCount())
}

func TestSupervisedDeviceHandlerCloseWithoutStart(t *testing.T) {
	handler := &testSupervisedDeviceHandler{}

	supervised := NewSupervisedDeviceHandler(handler, 0)

	closedCh := make(chan error, 1)

	go func() {
		closedCh <- supervised.Close()
	}()

	select {
	case err := <-closedCh:
		require.Nil(t, err)

	case <-time.After(time.Second * 2):
		t.Fatal("Close() didn't finish in time")
	}

	require.Equal(t, 0, handler.handleCount())
}

func TestSupervisedDeviceHandlerCloseTwice(t *testing.T) {
	handler := &testSupervisedDeviceHandler{}

	supervised := NewSupervisedDeviceHandler(handler, 0)
	supervised.Start()

	require.Nil(t, supervised.Close())
	require.Nil(t, supervised.Close())

	// Events after close are ignored.
	device := makeDevice(net.IPv4(10, 0, 0, 5), "_svc._tcp.local")
	require.Nil(t, supervised.HandleDevice("_tcp.local", device))

	time.Sleep(time.Millisecond * 10)
	require.Equal(t, 0, handler.handleCount())
}
