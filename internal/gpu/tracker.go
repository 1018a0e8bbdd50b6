package gpu

import (
	"sync"
)

// Tracker wraps a Device and accounts for every buffer it hands out, so a
// caller can prove that a unit of work released everything it allocated.
type Tracker struct {
	device Device
	active map[*trackedBuffer]struct{}
	mu     sync.Mutex
	stats  TrackerStats
}

// TrackerStats tracks allocation statistics
type TrackerStats struct {
	Allocations       int64 // Successful allocations
	Frees             int64 // Successful releases
	FailedAllocations int64 // Allocations refused by the device
	DoubleFrees       int64 // Releases of an already released buffer
	BytesAllocated    int64 // Total bytes handed out
}

// trackedBuffer routes Free through the tracker
type trackedBuffer struct {
	Buffer
	tracker *Tracker
}

// Track creates a tracker over device
func Track(device Device) *Tracker {
	return &Tracker{
		device: device,
		active: make(map[*trackedBuffer]struct{}),
	}
}

// Unwrap returns the tracked device
func (t *Tracker) Unwrap() Device { return t.device }

func (t *Tracker) Type() DeviceType            { return t.device.Type() }
func (t *Tracker) Name() string                { return t.device.Name() }
func (t *Tracker) Sync() error                 { return t.device.Sync() }
func (t *Tracker) MemoryUsage() (int64, int64) { return t.device.MemoryUsage() }

// Free releases outstanding buffers. The underlying device is left alone:
// devices outlive the units of work that are tracked against them.
func (t *Tracker) Free() error {
	t.mu.Lock()
	leaked := make([]*trackedBuffer, 0, len(t.active))
	for buf := range t.active {
		leaked = append(leaked, buf)
	}
	t.mu.Unlock()

	var firstErr error
	for _, buf := range leaked {
		if err := buf.Free(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Allocate allocates from the underlying device and records the buffer
func (t *Tracker) Allocate(size int64) (Buffer, error) {
	raw, err := t.device.Allocate(size)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.stats.FailedAllocations++
		return nil, err
	}

	buf := &trackedBuffer{Buffer: raw, tracker: t}
	t.active[buf] = struct{}{}
	t.stats.Allocations++
	t.stats.BytesAllocated += size

	return buf, nil
}

func (t *Tracker) release(buf *trackedBuffer) error {
	t.mu.Lock()
	if _, ok := t.active[buf]; !ok {
		t.stats.DoubleFrees++
		t.mu.Unlock()
		return ErrBufferFreed
	}
	delete(t.active, buf)
	t.stats.Frees++
	t.mu.Unlock()

	return buf.Buffer.Free()
}

// Outstanding returns the number and total size of unreleased buffers
func (t *Tracker) Outstanding() (count int, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for buf := range t.active {
		bytes += buf.Size()
	}
	return len(t.active), bytes
}

// Stats returns current allocation statistics
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (b *trackedBuffer) Free() error {
	return b.tracker.release(b)
}

func (b *trackedBuffer) Device() Device {
	return b.tracker
}
