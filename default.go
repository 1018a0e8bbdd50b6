package gpujpeg

import (
	"strings"
	"sync"

	"github.com/xupit3r/gpujpeg/internal/config"
	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// CategoryName prefixes every error message produced by this package
const CategoryName = "gpujpeg"

var categoryOnce sync.Once

func ensureCategory() {
	categoryOnce.Do(func() {
		// Fails only if something else in the process claimed the
		// category first, in which case its prefix stands.
		_, _ = status.InitCategory(CategoryName)
	})
}

var (
	loadOnce     sync.Once
	defaultCodec *Codec
	loadErr      error
)

// Load probes for a usable compute device and builds the default codec from
// configuration ($HOME/.gpujpeg/config.yaml, ./config.yaml, GPUJPEG_* env).
// Unless device.backend is set to cpu, a CUDA device is required and Load
// fails with ErrEngineUnavailable carrying the runtime's diagnostic.
// It runs once per process: a failed probe is final and every later call
// returns the same error.
func Load() error {
	loadOnce.Do(func() {
		ensureCategory()
		cfg, err := config.Load("")
		if err != nil {
			loadErr = status.BackendUnavailable("load_config", err)
			return
		}
		defaultCodec, loadErr = load(cfg, gpu.GetDeviceByName)
	})
	return loadErr
}

// load builds the default codec. The host-emulated device is used only when
// the configuration asks for it by name.
func load(cfg *config.Config, detect func(name string) (gpu.Device, error)) (*Codec, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Device.Backend))
	if backend == "" || backend == "auto" {
		backend = "cuda"
	}

	dev, err := detect(backend)
	if err != nil {
		return nil, status.BackendUnavailable("device_probe", err)
	}

	return New(
		withDevice(dev),
		WithEngine(cfg.Codec.Engine),
	)
}

// Default returns the process-wide codec, loading it on first use
func Default() (*Codec, error) {
	if err := Load(); err != nil {
		return nil, err
	}
	return defaultCodec, nil
}

// Encode compresses img with the default codec at quality 90 and 4:2:0
// chroma subsampling
func Encode(img *Array) ([]byte, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.Encode(img)
}

// Decode decompresses data with the default codec
func Decode(data []byte) (*Array, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}
