// Package hashing provides the FNV-1a 32-bit hash used to fingerprint tile payloads.
package hashing

const (
	// FNV1a32Init is the initial hash for the FNV-1a 32-bit hash function.
	FNV1a32Init uint32 = 0x811c9dc5

	fnv1Prime32 uint32 = 16777619
)

// FNV1a32Seed computes the FNV-1a 32-bit hash of data starting from init.
// Hash generation must always start from FNV1a32Init; this variant exists
// so callers can hash multiple byte slices consecutively.
func FNV1a32Seed(init uint32, data []byte) uint32 {
	hash := init
	for _, b := range data {
		hash ^= uint32(b)
		hash *= fnv1Prime32
	}
	return hash
}

// FNV1a32 computes the FNV-1a 32-bit hash of data.
func FNV1a32(data []byte) uint32 {
	return FNV1a32Seed(FNV1a32Init, data)
}
