package pipmdns

import (
	"encoding/json"
	"fmt"

	"github.com/open-control-systems/discovery-hub/components/storage/stcore"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
)

// RegistryKeeper persists registry snapshots to the local storage.
//
// Each registry bucket is stored as a single blob, keyed by the namespace.
type RegistryKeeper struct {
	hub *sysmdns.Hub
	db  stcore.DB
}

// NewRegistryKeeper is an initialization of RegistryKeeper.
//
// Parameters:
//   - hub to read registry snapshots from.
//   - db to persist registry snapshots.
func NewRegistryKeeper(hub *sysmdns.Hub, db stcore.DB) *RegistryKeeper {
	return &RegistryKeeper{
		hub: hub,
		db:  db,
	}
}

// Run persists the current registry snapshot.
func (k *RegistryKeeper) Run() error {
	registry := k.hub.Registry()

	for namespace, bucket := range registry {
		buf, err := json.Marshal(bucket)
		if err != nil {
			return fmt.Errorf("registry-keeper: failed to format bucket:"+
				" namespace=%s: %w", namespace, err)
		}

		if err := k.db.Write(namespace, stcore.Blob{Data: buf}); err != nil {
			return fmt.Errorf("registry-keeper: failed to persist bucket:"+
				" namespace=%s: %w", namespace, err)
		}
	}

	return nil
}

// RestoreRegistry reads the last persisted registry snapshot.
func RestoreRegistry(db stcore.DB) (sysmdns.Registry, error) {
	registry := sysmdns.Registry{}

	err := db.ForEach(func(key string, b stcore.Blob) error {
		var bucket []sysmdns.Device

		if err := json.Unmarshal(b.Data, &bucket); err != nil {
			return fmt.Errorf("failed to parse bucket: namespace=%s: %w", key, err)
		}

		registry[key] = bucket

		return nil
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}
