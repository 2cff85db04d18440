package sysmdns

// DeviceHandler to handle devices discovered over the local network.
type DeviceHandler interface {
	// HandleDevice handles the device claimed for the namespace.
	HandleDevice(namespace string, device Device) error
}
