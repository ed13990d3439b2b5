//go:build freebsd || openbsd || netbsd || dragonfly

package sysmem

import "golang.org/x/sys/unix"

func detectTotalRAM() (uint64, bool) {
	mem, err := unix.SysctlUint64("hw.physmem")
	if err == nil && mem > 0 {
		return mem, true
	}
	// FreeBSD reports the unclamped value under hw.realmem.
	mem, err = unix.SysctlUint64("hw.realmem")
	if err == nil && mem > 0 {
		return mem, true
	}
	return 0, false
}
