package codec

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/gpu"
)

// EngineByName resolves an engine name against the device it will run on.
//
//   - "software" always works.
//   - "nvjpeg" requires a GPU device and a build with CUDA support.
//   - "auto" (or "") picks nvjpeg on a GPU device and falls back to the
//     software engine otherwise.
func EngineByName(name string, dev gpu.Device, log *logrus.Entry) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		if dev.Type() == gpu.DeviceTypeGPU {
			e, err := NewNVJPEGEngine()
			if err == nil {
				return e, nil
			}
			log.WithError(err).Warn("nvJPEG engine unavailable, falling back to software engine")
		}
		return NewSoftwareEngine(), nil

	case "software", "cpu":
		return NewSoftwareEngine(), nil

	case "nvjpeg":
		if dev.Type() != gpu.DeviceTypeGPU {
			return nil, fmt.Errorf("nvjpeg engine requires a GPU device, got %s (%s)", dev.Name(), dev.Type())
		}
		return NewNVJPEGEngine()

	default:
		return nil, fmt.Errorf("unknown codec engine: %s (supported: auto, software, nvjpeg)", name)
	}
}
