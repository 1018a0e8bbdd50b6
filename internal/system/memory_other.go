//go:build !linux && !darwin

package system

import (
	"fmt"
	"runtime"
)

func readHostMemory() (HostMemory, error) {
	return HostMemory{}, fmt.Errorf("host memory probing not supported on %s", runtime.GOOS)
}
