package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// Staging stage names
const (
	StageAllocate     = "device_alloc"
	StageCopyToDevice = "copy_to_device"
	StageCopyToHost   = "copy_to_host"
	StageSynchronize  = "synchronize"
)

// allocate reserves size bytes of device memory. Every successful call must
// be paired with exactly one deferred release.
func allocate(dev gpu.Device, size int64, log *logrus.Entry) (gpu.Buffer, error) {
	buf, err := dev.Allocate(size)
	if err != nil {
		return nil, status.Allocation(StageAllocate, size, err)
	}
	log.WithField("bytes", size).Debug("device buffer allocated")
	return buf, nil
}

// release frees buf. A failed free is logged and swallowed so it never
// replaces the call's own result or error.
func release(buf gpu.Buffer, log *logrus.Entry) {
	size := buf.Size()
	if err := buf.Free(); err != nil {
		log.WithError(err).WithField("bytes", size).Warn("failed to release device buffer")
		return
	}
	log.WithField("bytes", size).Debug("device buffer released")
}

// copyToDevice copies src into the start of buf and blocks until done
func copyToDevice(buf gpu.Buffer, src []byte) error {
	if err := buf.CopyFromHost(src); err != nil {
		return status.Transfer(StageCopyToDevice, err)
	}
	return nil
}

// copyToHost copies the whole of buf into dst and blocks until done
func copyToHost(dst []byte, buf gpu.Buffer) error {
	if err := buf.CopyToHost(dst); err != nil {
		return status.Transfer(StageCopyToHost, err)
	}
	return nil
}

// synchronize waits for device work queued by the codec engine
func synchronize(dev gpu.Device) error {
	if err := dev.Sync(); err != nil {
		return status.Runtime(StageSynchronize, err)
	}
	return nil
}
