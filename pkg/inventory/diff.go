package inventory

import (
	"golang.org/x/text/unicode/norm"
)

// nameKey computes the comparison key for a file name. Names are compared in
// Unicode normalization form C so that decomposed and precomposed spellings
// of the same name (as produced by different filesystems) are treated as the
// same file.
func nameKey(name string) string {
	return norm.NFC.String(name)
}

// Missing returns the records from local that remote needs: those whose name
// is absent from remote and those whose name is present with a different
// digest. Only that direction is computed. The result preserves local order.
// If local contains duplicate names, the first occurrence wins.
func Missing(local, remote Inventory) []FileRecord {
	// Index the remote side by name. The first remote record for a name wins,
	// which only matters for malformed inventories.
	remoteDigests := make(map[string]string, len(remote))
	for _, record := range remote {
		key := nameKey(record.Name)
		if _, ok := remoteDigests[key]; !ok {
			remoteDigests[key] = record.Digest
		}
	}

	// Walk the local side.
	var missing []FileRecord
	seen := make(map[string]bool, len(local))
	for _, record := range local {
		key := nameKey(record.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if digest, ok := remoteDigests[key]; !ok || digest != record.Digest {
			missing = append(missing, record)
		}
	}

	// Done.
	return missing
}
