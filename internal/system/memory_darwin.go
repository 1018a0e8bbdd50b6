package system

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func readHostMemory() (HostMemory, error) {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return HostMemory{}, fmt.Errorf("failed to get total memory: %w", err)
	}
	total, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return HostMemory{}, fmt.Errorf("failed to parse total memory: %w", err)
	}

	out, err = exec.Command("vm_stat").Output()
	if err != nil {
		return HostMemory{}, fmt.Errorf("failed to get vm_stat: %w", err)
	}

	var freePages, inactivePages int64
	pageSize := int64(4096)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "Pages free:") && len(fields) >= 3:
			freePages, _ = strconv.ParseInt(strings.TrimSuffix(fields[2], "."), 10, 64)
		case strings.HasPrefix(line, "Pages inactive:") && len(fields) >= 3:
			inactivePages, _ = strconv.ParseInt(strings.TrimSuffix(fields[2], "."), 10, 64)
		case strings.HasPrefix(line, "Mach Virtual Memory Statistics") && len(fields) >= 8:
			// "(page size of 16384 bytes)"
			pageSize, _ = strconv.ParseInt(fields[7], 10, 64)
		}
	}

	return HostMemory{
		TotalBytes:     total,
		AvailableBytes: (freePages + inactivePages) * pageSize,
	}, nil
}
