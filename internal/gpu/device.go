package gpu

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xupit3r/gpujpeg/internal/system"
)

// Device represents a compute device with its own memory space
type Device interface {
	// Type returns the device type
	Type() DeviceType

	// Name returns a human-readable device name
	Name() string

	// Allocate allocates a buffer of the given size in bytes
	Allocate(size int64) (Buffer, error)

	// Sync waits for all pending operations to complete
	Sync() error

	// Free releases the device and all associated resources
	Free() error

	// MemoryUsage returns current memory usage in bytes (used, total)
	MemoryUsage() (int64, int64)
}

// DeviceType represents the type of compute device
type DeviceType int

const (
	DeviceTypeCPU DeviceType = iota
	DeviceTypeGPU
)

func (dt DeviceType) String() string {
	switch dt {
	case DeviceTypeCPU:
		return "CPU"
	case DeviceTypeGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// GetDefaultDevice returns CUDA when a usable GPU is present, otherwise the
// host-emulated device
func GetDefaultDevice() (Device, error) {
	if runtime.GOOS == "linux" {
		dev, err := NewCUDADevice()
		if err == nil {
			return dev, nil
		}
	}

	return NewCPUDevice(), nil
}

// GetDeviceByName resolves a backend name as accepted by the --device flag
func GetDeviceByName(name string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return GetDefaultDevice()

	case "cpu":
		return NewCPUDevice(), nil

	case "gpu", "cuda":
		if runtime.GOOS != "linux" {
			return nil, fmt.Errorf("CUDA is only available on Linux")
		}
		dev, err := NewCUDADevice()
		if err != nil {
			return nil, fmt.Errorf("CUDA not available: %w", err)
		}
		return dev, nil

	default:
		return nil, fmt.Errorf("unknown device: %s (valid options: auto, cpu, cuda)", name)
	}
}

// MaxHostAllocation caps a single host-emulated allocation when no explicit
// limit is set. It holds a 32768x32768 RGB frame.
const MaxHostAllocation int64 = 4 << 30

// CPUDevice emulates device memory in host RAM. It stands in for a GPU when
// none is present and lets the codec pipelines run their staging unchanged.
type CPUDevice struct {
	name     string
	limit    int64 // 0 = bounded by MaxHostAllocation and available RAM
	inUse    atomic.Int64
	hostInfo func() (system.HostMemory, error)
}

// NewCPUDevice creates a new host-emulated device
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{
		name:     fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		hostInfo: system.ReadHostMemory,
	}
}

// NewCPUDeviceWithLimit creates a host-emulated device that refuses
// allocations once limit bytes are outstanding
func NewCPUDeviceWithLimit(limit int64) *CPUDevice {
	d := NewCPUDevice()
	d.limit = limit
	return d
}

func (d *CPUDevice) Type() DeviceType { return DeviceTypeCPU }
func (d *CPUDevice) Name() string     { return d.name }

func (d *CPUDevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}

	if d.limit == 0 {
		if avail := d.available(); size > avail {
			return nil, fmt.Errorf("out of memory: %d bytes requested, %d available", size, avail)
		}
	}

	if n := d.inUse.Add(size); d.limit > 0 && n > d.limit {
		d.inUse.Add(-size)
		return nil, fmt.Errorf("out of memory: %d bytes requested, %d of %d in use", size, n-size, d.limit)
	}

	return &cpuBuffer{data: make([]byte, size), size: size, device: d}, nil
}

// available is the largest single allocation an unlimited device accepts
func (d *CPUDevice) available() int64 {
	avail := MaxHostAllocation
	if mem, err := d.hostInfo(); err == nil && mem.AvailableBytes > 0 && mem.AvailableBytes < avail {
		avail = mem.AvailableBytes
	}
	return avail
}

func (d *CPUDevice) Sync() error {
	// Host copies are synchronous
	return nil
}

func (d *CPUDevice) Free() error {
	return nil
}

// MemoryUsage reports bytes held by live buffers against host RAM
func (d *CPUDevice) MemoryUsage() (int64, int64) {
	used := d.inUse.Load()
	if d.limit > 0 {
		return used, d.limit
	}
	mem, err := d.hostInfo()
	if err != nil {
		return used, 0
	}
	return used, mem.TotalBytes
}

// cpuBuffer implements Buffer for host-emulated memory
type cpuBuffer struct {
	data   []byte
	size   int64
	device *CPUDevice
	freed  bool
	mu     sync.RWMutex
}

func (b *cpuBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *cpuBuffer) Ptr() uintptr {
	return 0
}

func (b *cpuBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.freed {
		return ErrBufferFreed
	}
	if len(dst) < len(b.data) {
		return fmt.Errorf("destination buffer too small: %d < %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *cpuBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return ErrBufferFreed
	}
	if len(b.data) < len(src) {
		return fmt.Errorf("buffer too small: %d < %d", len(b.data), len(src))
	}
	copy(b.data, src)
	return nil
}

func (b *cpuBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return ErrBufferFreed
	}
	b.device.inUse.Add(-b.size)
	b.data = nil
	b.freed = true
	return nil
}

func (b *cpuBuffer) Device() Device {
	return b.device
}
