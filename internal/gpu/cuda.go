//go:build linux && cgo && cuda

package gpu

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lcudart

#include <cuda_runtime.h>
#include <stdlib.h>

static const char* getCudaErrorString(cudaError_t error) {
    return cudaGetErrorString(error);
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// CUDADevice represents a CUDA GPU device
type CUDADevice struct {
	deviceID int
	name     string
	buffers  map[uintptr]*cudaBuffer
	mu       sync.RWMutex
}

// One CUDA context per process; the probe runs on first use and its result
// (device or diagnostic) is final.
var (
	cudaDeviceSingleton *CUDADevice
	cudaDeviceOnce      sync.Once
	cudaDeviceErr       error
)

// NewCUDADevice returns the singleton CUDA device (probed on first call)
func NewCUDADevice() (*CUDADevice, error) {
	cudaDeviceOnce.Do(func() {
		cudaDeviceSingleton, cudaDeviceErr = initCUDADevice()
	})
	return cudaDeviceSingleton, cudaDeviceErr
}

func cudaError(op string, err C.cudaError_t) error {
	return &RuntimeError{
		Op:   op,
		Code: int(err),
		Msg:  C.GoString(C.getCudaErrorString(err)),
	}
}

func initCUDADevice() (*CUDADevice, error) {
	var deviceCount C.int
	if err := C.cudaGetDeviceCount(&deviceCount); err != C.cudaSuccess {
		return nil, cudaError("cudaGetDeviceCount", err)
	}
	if deviceCount == 0 {
		return nil, fmt.Errorf("no CUDA devices found")
	}

	deviceID := 0
	if err := C.cudaSetDevice(C.int(deviceID)); err != C.cudaSuccess {
		return nil, cudaError("cudaSetDevice", err)
	}

	var props C.struct_cudaDeviceProp
	if err := C.cudaGetDeviceProperties(&props, C.int(deviceID)); err != C.cudaSuccess {
		return nil, cudaError("cudaGetDeviceProperties", err)
	}

	return &CUDADevice{
		deviceID: deviceID,
		name:     C.GoString(&props.name[0]),
		buffers:  make(map[uintptr]*cudaBuffer),
	}, nil
}

func (d *CUDADevice) Type() DeviceType {
	return DeviceTypeGPU
}

func (d *CUDADevice) Name() string {
	return d.name
}

func (d *CUDADevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}

	var ptr unsafe.Pointer
	if err := C.cudaMalloc(&ptr, C.size_t(size)); err != C.cudaSuccess {
		return nil, cudaError("cudaMalloc", err)
	}

	buf := &cudaBuffer{
		ptr:    ptr,
		size:   size,
		device: d,
	}

	d.mu.Lock()
	d.buffers[uintptr(ptr)] = buf
	d.mu.Unlock()

	return buf, nil
}

func (d *CUDADevice) Sync() error {
	if err := C.cudaDeviceSynchronize(); err != C.cudaSuccess {
		return cudaError("cudaDeviceSynchronize", err)
	}
	return nil
}

func (d *CUDADevice) Free() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, buf := range d.buffers {
		if buf.ptr != nil {
			C.cudaFree(buf.ptr)
			buf.ptr = nil
		}
	}
	d.buffers = make(map[uintptr]*cudaBuffer)

	if err := C.cudaDeviceReset(); err != C.cudaSuccess {
		return cudaError("cudaDeviceReset", err)
	}
	return nil
}

func (d *CUDADevice) MemoryUsage() (int64, int64) {
	var free, total C.size_t
	if err := C.cudaMemGetInfo(&free, &total); err != C.cudaSuccess {
		return 0, 0
	}
	return int64(total) - int64(free), int64(total)
}

// cudaBuffer implements Buffer for CUDA GPU memory
type cudaBuffer struct {
	ptr    unsafe.Pointer
	size   int64
	device *CUDADevice
	mu     sync.RWMutex
}

func (b *cudaBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *cudaBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uintptr(b.ptr)
}

func (b *cudaBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ptr == nil {
		return ErrBufferFreed
	}
	if int64(len(dst)) < b.size {
		return fmt.Errorf("destination buffer too small: %d < %d", len(dst), b.size)
	}

	err := C.cudaMemcpy(unsafe.Pointer(&dst[0]), b.ptr, C.size_t(b.size), C.cudaMemcpyDeviceToHost)
	if err != C.cudaSuccess {
		return cudaError("cudaMemcpy(DeviceToHost)", err)
	}
	return nil
}

func (b *cudaBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ptr == nil {
		return ErrBufferFreed
	}
	if b.size < int64(len(src)) {
		return fmt.Errorf("buffer too small: %d < %d", b.size, len(src))
	}
	if len(src) == 0 {
		return nil
	}

	err := C.cudaMemcpy(b.ptr, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice)
	if err != C.cudaSuccess {
		return cudaError("cudaMemcpy(HostToDevice)", err)
	}
	return nil
}

func (b *cudaBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ptr == nil {
		return ErrBufferFreed
	}

	b.device.mu.Lock()
	delete(b.device.buffers, uintptr(b.ptr))
	b.device.mu.Unlock()

	err := C.cudaFree(b.ptr)
	b.ptr = nil
	if err != C.cudaSuccess {
		return cudaError("cudaFree", err)
	}
	return nil
}

func (b *cudaBuffer) Device() Device {
	return b.device
}
