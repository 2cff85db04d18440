package sysmdns

import "net"

// OtherBucket is the reserved registry bucket for devices not claimed by
// any active namespace.
const OtherBucket = "other"

// Registry is a mapping from the namespace to the list of discovered devices.
//
// Remarks:
//   - A registry value is never modified in place: every merge produces a new
//     registry, so a previously obtained registry can be read concurrently.
type Registry map[string][]Device

// Claim is a single device first qualifying for a namespace bucket.
type Claim struct {
	Namespace string
	Device    Device
}

// Clone returns a copy of the registry.
//
// Remarks:
//   - Bucket slices are shared with the original: they're replaced on
//     update, never modified in place.
func (r Registry) Clone() Registry {
	next := make(Registry, len(r))

	for namespace, bucket := range r {
		next[namespace] = bucket
	}

	return next
}

// Find returns the device with the given address from any bucket.
func (r Registry) Find(addr net.IP) (Device, bool) {
	for _, bucket := range r {
		for _, device := range bucket {
			if device.Addr.Equal(addr) {
				return device, true
			}
		}
	}

	return Device{}, false
}

// Merge folds the device into the registry for every active namespace.
//
// For each namespace the device services match (suffix match), the device is
// either inserted at the head of the bucket, producing a claim, or merged
// field-wise into the existing entry with the same address. Buckets of
// namespaces the device doesn't match are carried forward unchanged. A device
// matching no namespace at all is kept in the OtherBucket, without a claim;
// once the device matches a namespace, its OtherBucket entry is dropped.
//
// Remarks:
//   - The original registry isn't modified, an updated copy is returned.
func (r Registry) Merge(namespaces []string, device Device) (Registry, []Claim) {
	next := r.Clone()

	var claims []Claim

	matched := false

	for _, namespace := range namespaces {
		if !device.MatchNamespace(namespace) {
			continue
		}

		matched = true

		bucket, claimed := insertDevice(next[namespace], device)
		next[namespace] = bucket

		if claimed {
			claims = append(claims, Claim{Namespace: namespace, Device: device})
		}
	}

	if matched {
		if bucket := removeDevice(next[OtherBucket], device.Addr); len(bucket) > 0 {
			next[OtherBucket] = bucket
		} else {
			delete(next, OtherBucket)
		}
	} else {
		bucket, _ := insertDevice(next[OtherBucket], device)
		next[OtherBucket] = bucket
	}

	return next, claims
}

// insertDevice returns the updated bucket and true if the device was claimed:
// no entry with the same address existed before.
func insertDevice(bucket []Device, device Device) ([]Device, bool) {
	for n, known := range bucket {
		if !known.Addr.Equal(device.Addr) {
			continue
		}

		updated := make([]Device, len(bucket))
		copy(updated, bucket)

		updated[n] = mergeDevices(known, device)

		return updated, false
	}

	updated := make([]Device, 0, len(bucket)+1)
	updated = append(updated, device)
	updated = append(updated, bucket...)

	return updated, true
}

// removeDevice returns the bucket without the entry with the given address.
func removeDevice(bucket []Device, addr net.IP) []Device {
	for n, known := range bucket {
		if !known.Addr.Equal(addr) {
			continue
		}

		updated := make([]Device, 0, len(bucket)-1)
		updated = append(updated, bucket[:n]...)
		updated = append(updated, bucket[n+1:]...)

		return updated
	}

	return bucket
}

// mergeDevices merges the update into the known device field-wise: the
// address is preserved, services are unioned, domain and payload are
// replaced when the update supplies them.
func mergeDevices(known Device, update Device) Device {
	merged := known

	for _, service := range update.Services {
		merged = merged.withService(service)
	}

	if update.Domain != "" {
		merged.Domain = update.Domain
	}

	if update.Payload != nil {
		merged.Payload = update.Payload
	}

	return merged
}
