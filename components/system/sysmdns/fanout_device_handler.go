package sysmdns

import "github.com/open-control-systems/discovery-hub/components/core"

// FanoutDeviceHandler notifies the underlying handlers about claimed devices.
type FanoutDeviceHandler struct {
	handlers []DeviceHandler
}

// HandleDevice handles the device claimed for the namespace.
func (h *FanoutDeviceHandler) HandleDevice(namespace string, device Device) error {
	for _, handler := range h.handlers {
		if err := handler.HandleDevice(namespace, device); err != nil {
			core.LogErr.Printf("fanout-device-handler: failed to handle device:"+
				" namespace=%s addr=%s err=%v\n", namespace, device.Addr, err)
		}
	}

	return nil
}

// Add adds handler to be notified when a device is claimed.
func (h *FanoutDeviceHandler) Add(handler DeviceHandler) {
	h.handlers = append(h.handlers, handler)
}
