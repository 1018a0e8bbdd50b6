package system

import (
	"fmt"
	"runtime"
)

// HostMemory describes host RAM as seen by the host-emulated device
type HostMemory struct {
	TotalBytes     int64
	AvailableBytes int64
}

// UsedBytes returns the portion of host RAM not available for new allocations
func (m HostMemory) UsedBytes() int64 {
	return m.TotalBytes - m.AvailableBytes
}

// ReadHostMemory probes the current host memory state
func ReadHostMemory() (HostMemory, error) {
	return readHostMemory()
}

// FormatBytes formats bytes as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Platform returns the os/arch pair of the running binary
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
