//go:build linux

package sysmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes reports the amount of memory the kernel considers reclaimable
// for new allocations: free pages plus buffer pages. Page cache beyond
// buffers is deliberately not counted, which keeps budgets conservative on
// busy machines.
func FreeBytes() (int64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}

	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}

	return (int64(info.Freeram) + int64(info.Bufferram)) * unit, nil
}
