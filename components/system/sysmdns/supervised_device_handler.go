package sysmdns

import (
	"sync"

	"github.com/open-control-systems/discovery-hub/components/core"
)

const defaultEventQueueSize = 16

type deviceEvent struct {
	namespace string
	device    Device
}

// SupervisedDeviceHandler isolates the underlying handler from the notifier.
//
// Events are delivered on a standalone goroutine through a bounded queue, so
// a slow or crashed handler never blocks the discovery state machine. A panic
// in the handler is recovered and delivery continues with the next event.
// When the queue is full the event is dropped with a warning.
type SupervisedDeviceHandler struct {
	handler DeviceHandler
	eventCh chan deviceEvent
	doneCh  chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSupervisedDeviceHandler is an initialization of SupervisedDeviceHandler.
//
// Parameters:
//   - handler to deliver claimed devices to.
//   - queueSize - maximum number of pending events, defaulted if zero.
func NewSupervisedDeviceHandler(handler DeviceHandler, queueSize int) *SupervisedDeviceHandler {
	if queueSize == 0 {
		queueSize = defaultEventQueueSize
	}

	return &SupervisedDeviceHandler{
		handler: handler,
		eventCh: make(chan deviceEvent, queueSize),
		doneCh:  make(chan struct{}),
	}
}

// Start begins asynchronous event delivery.
func (h *SupervisedDeviceHandler) Start() {
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	go h.run()
}

// HandleDevice queues the device event for delivery.
//
// Remarks:
//   - Never blocks: when the queue is full the event is dropped.
func (h *SupervisedDeviceHandler) HandleDevice(namespace string, device Device) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	select {
	case h.eventCh <- deviceEvent{namespace: namespace, device: device}:
	default:
		core.LogWrn.Printf("supervised-device-handler: queue full, event dropped:"+
			" namespace=%s addr=%s\n", namespace, device.Addr)
	}

	return nil
}

// Close ends event delivery and waits until pending events are handled.
//
// Remarks:
//   - Safe to call even if Start() was never called.
func (h *SupervisedDeviceHandler) Close() error {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()

		return nil
	}
	h.closed = true
	started := h.started
	h.mu.Unlock()

	close(h.eventCh)

	if started {
		<-h.doneCh
	}

	return nil
}

func (h *SupervisedDeviceHandler) run() {
	defer close(h.doneCh)

	for event := range h.eventCh {
		h.deliver(event)
	}
}

func (h *SupervisedDeviceHandler) deliver(event deviceEvent) {
	defer func() {
		if r := recover(); r != nil {
			core.LogErr.Printf("supervised-device-handler: handler crashed,"+
				" delivery re-established: namespace=%s addr=%s: %v\n",
				event.namespace, event.device.Addr, r)
		}
	}()

	if err := h.handler.HandleDevice(event.namespace, event.device); err != nil {
		core.LogErr.Printf("supervised-device-handler: failed to handle device:"+
			" namespace=%s addr=%s err=%v\n", event.namespace, event.device.Addr, err)
	}
}
