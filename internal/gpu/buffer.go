package gpu

// Buffer represents a region of device memory
type Buffer interface {
	// Size returns the size of the buffer in bytes
	Size() int64

	// Ptr returns the raw device address (for codec engine APIs).
	// Returns 0 for host-emulated buffers.
	Ptr() uintptr

	// CopyToHost copies the whole buffer into host memory. Blocks until done.
	CopyToHost(dst []byte) error

	// CopyFromHost copies host memory into the start of the buffer. Blocks until done.
	CopyFromHost(src []byte) error

	// Free releases the buffer. Freeing twice is an error.
	Free() error

	// Device returns the device that owns this buffer
	Device() Device
}
