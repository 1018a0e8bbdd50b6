//go:build !linux || !cgo || !cuda

package gpu

import "fmt"

// CUDADevice stub for builds without the cuda tag
type CUDADevice struct{}

// NewCUDADevice returns an error on unsupported builds
func NewCUDADevice() (*CUDADevice, error) {
	return nil, fmt.Errorf("CUDA support requires Linux with CGO enabled (build with: go build -tags cuda)")
}

func (d *CUDADevice) Type() DeviceType { return DeviceTypeGPU }
func (d *CUDADevice) Name() string     { return "CUDA (unavailable)" }
func (d *CUDADevice) Allocate(size int64) (Buffer, error) {
	return nil, fmt.Errorf("CUDA not available")
}
func (d *CUDADevice) Sync() error                 { return fmt.Errorf("CUDA not available") }
func (d *CUDADevice) Free() error                 { return fmt.Errorf("CUDA not available") }
func (d *CUDADevice) MemoryUsage() (int64, int64) { return 0, 0 }
