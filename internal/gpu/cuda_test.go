//go:build linux && cgo && cuda

package gpu

import (
	"bytes"
	"errors"
	"testing"
)

func TestCUDADevice(t *testing.T) {
	dev, err := NewCUDADevice()
	if err != nil {
		t.Skipf("CUDA not available: %v", err)
	}

	if dev.Type() != DeviceTypeGPU {
		t.Errorf("Expected DeviceTypeGPU, got %v", dev.Type())
	}
	if dev.Name() == "" {
		t.Error("Device name is empty")
	}
	t.Logf("CUDA Device: %s", dev.Name())

	used, total := dev.MemoryUsage()
	if total == 0 {
		t.Error("Total memory should be > 0")
	}
	t.Logf("Memory: %d MB used / %d MB total", used/(1024*1024), total/(1024*1024))
}

func TestCUDAHostTransfer(t *testing.T) {
	dev, err := NewCUDADevice()
	if err != nil {
		t.Skipf("CUDA not available: %v", err)
	}

	size := int64(1024)
	hostData := make([]byte, size)
	for i := range hostData {
		hostData[i] = byte(i % 256)
	}

	buf, err := dev.Allocate(size)
	if err != nil {
		t.Fatalf("Failed to allocate buffer: %v", err)
	}
	defer buf.Free()

	if buf.Ptr() == 0 {
		t.Error("Buffer pointer is null")
	}

	if err := buf.CopyFromHost(hostData); err != nil {
		t.Fatalf("Failed to copy to device: %v", err)
	}

	result := make([]byte, size)
	if err := buf.CopyToHost(result); err != nil {
		t.Fatalf("Failed to copy to host: %v", err)
	}
	if !bytes.Equal(result, hostData) {
		t.Error("round-tripped data does not match")
	}

	if err := dev.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
}

func TestCUDADoubleFree(t *testing.T) {
	dev, err := NewCUDADevice()
	if err != nil {
		t.Skipf("CUDA not available: %v", err)
	}

	buf, err := dev.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Free(); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := buf.Free(); !errors.Is(err, ErrBufferFreed) {
		t.Errorf("second Free = %v, want ErrBufferFreed", err)
	}
}

func TestCUDAInvalidSize(t *testing.T) {
	dev, err := NewCUDADevice()
	if err != nil {
		t.Skipf("CUDA not available: %v", err)
	}

	if _, err := dev.Allocate(0); err == nil {
		t.Error("Expected error for zero size allocation")
	}
	if _, err := dev.Allocate(-1); err == nil {
		t.Error("Expected error for negative size allocation")
	}
}
