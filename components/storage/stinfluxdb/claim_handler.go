package stinfluxdb

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/open-control-systems/discovery-hub/components/core"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
)

// ClaimHandler stores claimed devices in influxDB.
//
// References:
//   - https://docs.influxdata.com/influxdb/cloud/get-started
//   - https://docs.influxdata.com/influxdb/cloud/api-guide/client-libraries/go/
type ClaimHandler struct {
	ctx         context.Context
	dbClient    influxdb2.Client
	writeClient api.WriteAPIBlocking
}

// NewClaimHandler initializes influxDB handler.
//
// Parameters:
//   - ctx - parent context.
//   - closer - to register the handler for the underlying resource deallocation.
//   - params - various influxDB configuration parameters.
func NewClaimHandler(
	ctx context.Context,
	closer *core.FanoutCloser,
	params DBParams,
) *ClaimHandler {
	dbClient := influxdb2.NewClient(params.URL, params.Token)
	writeClient := dbClient.WriteAPIBlocking(params.Org, params.Bucket)

	handler := &ClaimHandler{
		ctx:         ctx,
		dbClient:    dbClient,
		writeClient: writeClient,
	}

	closer.Add("influxdb-claim-handler", handler)

	return handler
}

// HandleDevice stores the claimed device as a single data point.
func (h *ClaimHandler) HandleDevice(namespace string, device sysmdns.Device) error {
	point := influxdb2.NewPointWithMeasurement("mdns_claim").
		AddTag("namespace", namespace).
		AddTag("addr", device.Addr.String()).
		AddField("domain", device.Domain).
		AddField("service_count", len(device.Services)).
		SetTime(time.Now())

	for key, value := range device.Payload {
		point.AddField("txt_"+key, value)
	}

	return h.writeClient.WritePoint(h.ctx, point)
}

// Close stops writing data to the DB.
func (h *ClaimHandler) Close() error {
	h.dbClient.Close()

	return nil
}
