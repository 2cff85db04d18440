package pipmdns

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/discovery-hub/components/status"
	"github.com/open-control-systems/discovery-hub/components/storage/stcore"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
)

type testKeeperDB struct {
	data map[string]stcore.Blob
}

func newTestKeeperDB() *testKeeperDB {
	return &testKeeperDB{
		data: make(map[string]stcore.Blob),
	}
}

func (d *testKeeperDB) Read(key string) (stcore.Blob, error) {
	blob, ok := d.data[key]
	if !ok {
		return stcore.Blob{}, status.StatusNoData
	}

	return blob, nil
}

func (d *testKeeperDB) Write(key string, blob stcore.Blob) error {
	b := stcore.Blob{}

	b.Data = make([]byte, len(blob.Data))
	copy(b.Data, blob.Data)

	d.data[key] = b

	return nil
}

func (d *testKeeperDB) Remove(key string) error {
	delete(d.data, key)

	return nil
}

func (d *testKeeperDB) ForEach(fn func(key string, b stcore.Blob) error) error {
	for k, v := range d.data {
		if err := fn(k, v); err != nil {
			return err
		}
	}

	return nil
}

func (*testKeeperDB) Close() error {
	return nil
}

type testKeeperTransport struct{}

func (*testKeeperTransport) Send(_ []byte) error {
	return nil
}

func makeKeeperRegistry() sysmdns.Registry {
	device := sysmdns.NewDevice(net.IPv4(10, 0, 0, 7))
	device.Services = []string{"_svc._tcp.local"}
	device.Domain = "device.local"
	device.Payload = map[string]string{"role": "edge"}

	return sysmdns.Registry{
		"_tcp.local": []sysmdns.Device{device},
	}
}

func TestRegistryKeeperPersistRestore(t *testing.T) {
	db := newTestKeeperDB()
	registry := makeKeeperRegistry()

	transport := &testKeeperTransport{}

	hub := sysmdns.NewHub(
		transport,
		sysmdns.NewResponder(transport),
		nil,
		nil,
		sysmdns.HubParams{Registry: registry},
	)

	keeper := NewRegistryKeeper(hub, db)
	require.Nil(t, keeper.Run())

	restored, err := RestoreRegistry(db)
	require.Nil(t, err)
	require.Equal(t, registry, restored)
}

func TestRegistryKeeperRestoreEmpty(t *testing.T) {
	registry, err := RestoreRegistry(newTestKeeperDB())
	require.Nil(t, err)
	require.Empty(t, registry)
}

func TestRegistryKeeperRestoreCorrupted(t *testing.T) {
	db := newTestKeeperDB()
	require.Nil(t, db.Write("_tcp.local", stcore.Blob{Data: []byte("{")}))

	_, err := RestoreRegistry(db)
	require.NotNil(t, err)
}

func TestRegistryKeeperRunIdempotent(t *testing.T) {
	db := newTestKeeperDB()
	registry := makeKeeperRegistry()

	transport := &testKeeperTransport{}

	hub := sysmdns.NewHub(
		transport,
		sysmdns.NewResponder(transport),
		nil,
		nil,
		sysmdns.HubParams{Registry: registry},
	)

	keeper := NewRegistryKeeper(hub, db)
	require.Nil(t, keeper.Run())
	require.Nil(t, keeper.Run())

	restored, err := RestoreRegistry(db)
	require.Nil(t, err)
	require.Equal(t, registry, restored)
}
