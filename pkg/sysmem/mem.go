// Package sysmem detects total system RAM.
//
// The archive writer's dedup cache grows with distinct tile content and is
// never evicted; callers use this package to warn when the cache approaches
// a fraction of physical memory.
package sysmem

// DefaultMemoryBytes is the fallback (4 GB) when platform detection fails
// or the platform is unsupported.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// Result is the outcome of memory detection.
type Result struct {
	// TotalBytes is the total physical memory in bytes.
	TotalBytes uint64

	// Reliable is false when TotalBytes is the fallback default.
	Reliable bool
}

// Total returns the total system memory, falling back to DefaultMemoryBytes
// when detection fails.
func Total() Result {
	bytes, ok := detectTotalRAM()
	if !ok || bytes == 0 {
		return Result{TotalBytes: DefaultMemoryBytes, Reliable: false}
	}
	return Result{TotalBytes: bytes, Reliable: true}
}

// TotalBytes returns just the memory value. Use Total if the caller needs
// to know whether the value is reliable.
func TotalBytes() uint64 {
	return Total().TotalBytes
}
