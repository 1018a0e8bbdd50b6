// Package gputest provides a fault-injecting gpu.Device for tests.
package gputest

import (
	"sync"

	"github.com/xupit3r/gpujpeg/internal/gpu"
)

// Device wraps another device and fails selected operations on demand.
// A nil error field means the operation passes through.
type Device struct {
	gpu.Device

	mu               sync.Mutex
	AllocateErr      error
	CopyToHostErr    error
	CopyFromHostErr  error
	SyncErr          error
	FailAllocationAt int // fail only the n-th allocation (1-based); 0 = every one when AllocateErr is set
	allocations      int
}

// Wrap returns a pass-through device over dev
func Wrap(dev gpu.Device) *Device {
	return &Device{Device: dev}
}

// NewCPU returns a pass-through device over a fresh host-emulated device
func NewCPU() *Device {
	return Wrap(gpu.NewCPUDevice())
}

func (d *Device) Allocate(size int64) (gpu.Buffer, error) {
	d.mu.Lock()
	d.allocations++
	n := d.allocations
	err := d.AllocateErr
	at := d.FailAllocationAt
	d.mu.Unlock()

	if err != nil && (at == 0 || at == n) {
		return nil, err
	}

	buf, err := d.Device.Allocate(size)
	if err != nil {
		return nil, err
	}
	return &buffer{Buffer: buf, device: d}, nil
}

func (d *Device) Sync() error {
	d.mu.Lock()
	err := d.SyncErr
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return d.Device.Sync()
}

type buffer struct {
	gpu.Buffer
	device *Device
}

func (b *buffer) CopyToHost(dst []byte) error {
	b.device.mu.Lock()
	err := b.device.CopyToHostErr
	b.device.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Buffer.CopyToHost(dst)
}

func (b *buffer) CopyFromHost(src []byte) error {
	b.device.mu.Lock()
	err := b.device.CopyFromHostErr
	b.device.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Buffer.CopyFromHost(src)
}

func (b *buffer) Device() gpu.Device {
	return b.device
}
