package pipmdns

import (
	"github.com/open-control-systems/discovery-hub/components/core"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
)

// LogDeviceHandler logs every claimed device.
type LogDeviceHandler struct{}

// HandleDevice logs the claimed device.
func (*LogDeviceHandler) HandleDevice(namespace string, device sysmdns.Device) error {
	core.LogInf.Printf("device-handler: namespace=%s addr=%s domain=%s services=%v\n",
		namespace, device.Addr, device.Domain, device.Services)

	return nil
}
