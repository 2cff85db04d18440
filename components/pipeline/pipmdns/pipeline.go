package pipmdns

import (
	"context"
	"time"

	"github.com/open-control-systems/discovery-hub/components/core"
	"github.com/open-control-systems/discovery-hub/components/storage/stcore"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
	"github.com/open-control-systems/discovery-hub/components/system/sysnet"
	"github.com/open-control-systems/discovery-hub/components/system/syssched"
)

// PipelineParams represents various configuration options for the mDNS pipeline.
type PipelineParams struct {
	// Transport - various multicast transport options.
	Transport sysnet.MulticastTransportParams

	// QueryInterval - how often to re-send queries for active namespaces.
	QueryInterval time.Duration

	// SnapshotInterval - how often to persist registry snapshots.
	SnapshotInterval time.Duration

	// EventQueueSize - maximum number of pending events per subscriber.
	EventQueueSize int
}

// Pipeline contains all components of the mDNS discovery.
type Pipeline struct {
	transport     *sysnet.MulticastTransport
	resolveStore  *sysnet.ResolveStore
	deviceHandler *sysmdns.FanoutDeviceHandler
	hub           *sysmdns.Hub
	closer        *core.FanoutCloser
	params        PipelineParams
	starter       syssched.FanoutStarter
}

// NewPipeline initializes all components of the mDNS discovery.
//
// Parameters:
//   - ctx - parent context.
//   - closer - to register handlers for the underlying resource deallocation.
//   - db to persist and restore the registry.
//   - params - various mDNS pipeline options.
func NewPipeline(
	ctx context.Context,
	closer *core.FanoutCloser,
	db stcore.DB,
	params PipelineParams,
) (*Pipeline, error) {
	transport, err := sysnet.NewMulticastTransport(params.Transport)
	if err != nil {
		return nil, err
	}
	closer.Add("multicast-transport", transport)

	registry, err := RestoreRegistry(db)
	if err != nil {
		core.LogErr.Printf("mdns-pipeline: failed to restore registry: %v\n", err)

		registry = sysmdns.Registry{}
	}

	resolveStore := sysnet.NewResolveStore()
	deviceHandler := &sysmdns.FanoutDeviceHandler{}

	hub := sysmdns.NewHub(
		transport,
		sysmdns.NewResponder(transport),
		deviceHandler,
		resolveStore,
		sysmdns.HubParams{Registry: registry},
	)
	transport.SetPacketHandler(hub)

	pipeline := &Pipeline{
		transport:     transport,
		resolveStore:  resolveStore,
		deviceHandler: deviceHandler,
		hub:           hub,
		closer:        closer,
		params:        params,
	}
	pipeline.starter.Add(transport)

	if params.QueryInterval > 0 {
		runner := syssched.NewAsyncTaskRunner(
			ctx,
			NewRequeryTask(hub),
			&logErrorHandler{id: "mdns-requery-task"},
			params.QueryInterval,
		)
		closer.Add("mdns-requery-task", runner)

		pipeline.starter.Add(runner)
	}

	if params.SnapshotInterval > 0 {
		runner := syssched.NewAsyncTaskRunner(
			ctx,
			NewRegistryKeeper(hub, db),
			&logErrorHandler{id: "mdns-registry-keeper"},
			params.SnapshotInterval,
		)
		closer.Add("mdns-registry-keeper", runner)

		pipeline.starter.Add(runner)
	}

	return pipeline, nil
}

// GetHub returns the component to access the discovery state.
func (p *Pipeline) GetHub() *sysmdns.Hub {
	return p.hub
}

// GetResolveStore returns the component to resolve mDNS hostnames.
func (p *Pipeline) GetResolveStore() *sysnet.ResolveStore {
	return p.resolveStore
}

// Subscribe registers the handler to be notified about claimed devices.
//
// Each subscriber is isolated: events are delivered on a standalone goroutine
// and a misbehaving handler doesn't affect the discovery or other subscribers.
//
// Remarks:
//   - Should be called before Start().
func (p *Pipeline) Subscribe(id string, handler sysmdns.DeviceHandler) {
	supervised := sysmdns.NewSupervisedDeviceHandler(handler, p.params.EventQueueSize)
	p.closer.Add(id, supervised)

	p.deviceHandler.Add(supervised)
	p.starter.Add(supervised)
}

// Start begins the network traffic processing.
func (p *Pipeline) Start() {
	p.starter.Start()
}
