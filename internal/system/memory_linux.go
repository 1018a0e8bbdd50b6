package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func readHostMemory() (HostMemory, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return HostMemory{}, fmt.Errorf("failed to open /proc/meminfo: %w", err)
	}
	defer f.Close()

	return parseMeminfo(f)
}

// parseMeminfo reads MemTotal and MemAvailable (in kB) from a meminfo listing
func parseMeminfo(r io.Reader) (HostMemory, error) {
	var totalKB, availableKB int64

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}

		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			totalKB = value
		case "MemAvailable":
			availableKB = value
		}
	}
	if err := scanner.Err(); err != nil {
		return HostMemory{}, fmt.Errorf("failed to read meminfo: %w", err)
	}

	if totalKB == 0 {
		return HostMemory{}, fmt.Errorf("could not determine total host memory")
	}

	return HostMemory{
		TotalBytes:     totalKB * 1024,
		AvailableBytes: availableKB * 1024,
	}, nil
}
