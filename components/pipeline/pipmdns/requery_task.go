package pipmdns

import (
	"fmt"

	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
)

// RequeryTask re-sends queries for all active namespaces.
//
// mDNS responses can be lost or arrive from devices that joined the network
// after the original query, so active namespaces are queried periodically.
type RequeryTask struct {
	hub *sysmdns.Hub
}

// NewRequeryTask is an initialization of RequeryTask.
//
// Parameters:
//   - hub to read active namespaces from and send queries with.
func NewRequeryTask(hub *sysmdns.Hub) *RequeryTask {
	return &RequeryTask{hub: hub}
}

// Run queries all active namespaces one more time.
func (t *RequeryTask) Run() error {
	for _, namespace := range t.hub.Queries() {
		if err := t.hub.Query(namespace); err != nil {
			return fmt.Errorf("requery-task: failed to query: namespace=%s: %w",
				namespace, err)
		}
	}

	return nil
}
