//go:build darwin

package sysmem

import "golang.org/x/sys/unix"

func detectTotalRAM() (uint64, bool) {
	// hw.memsize is the total physical memory in bytes.
	mem, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, false
	}
	return mem, true
}
