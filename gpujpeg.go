// Package gpujpeg encodes and decodes JPEG images on a GPU codec engine.
//
// Every call opens its own codec session and device buffers and releases
// them before returning, so a Codec may be shared between goroutines.
package gpujpeg

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/logging"
	"github.com/xupit3r/gpujpeg/internal/pipeline"
	"github.com/xupit3r/gpujpeg/internal/pixel"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// Array is a host-resident (height, width, channel) sample array
type Array = pixel.Array

// DType is the sample type of an Array
type DType = pixel.DType

// Sample types
const (
	Uint8   = pixel.Uint8
	Int8    = pixel.Int8
	Uint16  = pixel.Uint16
	Int16   = pixel.Int16
	Int32   = pixel.Int32
	Float32 = pixel.Float32
	Float64 = pixel.Float64
)

// NewRGB allocates a zeroed (height, width, 3) uint8 array
func NewRGB(height, width int) *Array { return pixel.NewRGB(height, width) }

// Error is the error value returned by failed calls. Match its kind with
// errors.Is against the Err* values.
type Error = status.Error

// Error kinds
var (
	ErrInvalidArgument        = status.ErrInvalidArgument
	ErrEngineUnavailable      = status.ErrEngineUnavailable
	ErrDeviceAllocationFailed = status.ErrDeviceAllocationFailed
	ErrDeviceTransferFailed   = status.ErrDeviceTransferFailed
	ErrCodecOperationFailed   = status.ErrCodecOperationFailed
)

// ErrClosed is returned by calls on a closed Codec
var ErrClosed = errors.New("codec is closed")

// Codec binds a device, a codec engine and encode settings
type Codec struct {
	device gpu.Device
	engine codec.Engine
	params codec.EncodeParams
	logger *logrus.Logger
	closed atomic.Bool
}

type settings struct {
	device      gpu.Device
	deviceName  string
	engineName  string
	subsampling string
	params      codec.EncodeParams
	logger      *logrus.Logger
}

// Option configures New
type Option func(*settings)

// WithDevice selects the compute device: auto, cpu or cuda
func WithDevice(name string) Option {
	return func(s *settings) { s.deviceName = name }
}

// withDevice uses an already probed device
func withDevice(dev gpu.Device) Option {
	return func(s *settings) { s.device = dev }
}

// WithEngine selects the codec engine: auto, software or nvjpeg
func WithEngine(name string) Option {
	return func(s *settings) { s.engineName = name }
}

// WithQuality sets the encode quality (1..100, default 90)
func WithQuality(quality int) Option {
	return func(s *settings) { s.params.Quality = quality }
}

// WithSubsampling sets the chroma subsampling by name, e.g. "420" or "4:4:4"
func WithSubsampling(name string) Option {
	return func(s *settings) { s.subsampling = name }
}

// WithLogger routes call logs to l instead of the package logger
func WithLogger(l *logrus.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// New creates a Codec. The device is probed and the engine resolved here, so
// an unusable configuration fails now rather than on the first call.
func New(opts ...Option) (*Codec, error) {
	ensureCategory()

	s := settings{params: codec.DefaultEncodeParams()}
	for _, opt := range opts {
		opt(&s)
	}

	if s.subsampling != "" {
		css, err := codec.ParseSubsampling(s.subsampling)
		if err != nil {
			return nil, status.InvalidArgument("%v", err)
		}
		s.params.Subsampling = css
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger
	if logger == nil {
		logger = logging.Get()
	}
	log := logging.CallWith(logger, "new")

	dev := s.device
	if dev == nil {
		var err error
		if dev, err = gpu.GetDeviceByName(s.deviceName); err != nil {
			return nil, status.BackendUnavailable("device_probe", err)
		}
	}

	eng, err := codec.EngineByName(s.engineName, dev, log)
	if err != nil {
		return nil, status.BackendUnavailable("engine_select", err)
	}

	log.WithFields(logrus.Fields{
		"device":      dev.Name(),
		"engine":      eng.Name(),
		"quality":     s.params.Quality,
		"subsampling": s.params.Subsampling.String(),
	}).Debug("codec ready")

	return &Codec{
		device: dev,
		engine: eng,
		params: s.params,
		logger: logger,
	}, nil
}

// Device returns the name of the compute device
func (c *Codec) Device() string { return c.device.Name() }

// Engine returns the name of the codec engine
func (c *Codec) Engine() string { return c.engine.Name() }

// Quality returns the configured encode quality
func (c *Codec) Quality() int { return c.params.Quality }

// Subsampling returns the configured chroma subsampling name
func (c *Codec) Subsampling() string { return c.params.Subsampling.String() }

// Encode compresses a (height, width, 3) uint8 array into JPEG bytes
func (c *Codec) Encode(img *Array) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	log := logging.CallWith(c.logger, "encode")
	tr := gpu.Track(c.device)
	defer audit(tr, log)

	return pipeline.Encode(img, c.options(tr, log))
}

// Decode decompresses JPEG bytes into a (height, width, 3) uint8 array
func (c *Codec) Decode(data []byte) (*Array, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	log := logging.CallWith(c.logger, "decode")
	tr := gpu.Track(c.device)
	defer audit(tr, log)

	return pipeline.Decode(data, c.options(tr, log))
}

// EncodeImage compresses any image.Image. Alpha is composited onto black.
func (c *Codec) EncodeImage(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, status.InvalidArgument("image must not be nil")
	}
	return c.Encode(pixel.FromImage(img))
}

// DecodeImage decompresses JPEG bytes into an image.Image
func (c *Codec) DecodeImage(data []byte) (image.Image, error) {
	arr, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	img, err := arr.Image()
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Close stops the codec from accepting calls. The device is shared by the
// process and stays open.
func (c *Codec) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("gpujpeg: %w", ErrClosed)
	}
	return nil
}

func (c *Codec) options(dev gpu.Device, log *logrus.Entry) pipeline.Options {
	return pipeline.Options{
		Device: dev,
		Engine: c.engine,
		Params: c.params,
		Log:    log,
	}
}

// audit reports and reclaims device buffers a call failed to release
func audit(tr *gpu.Tracker, log *logrus.Entry) {
	n, bytes := tr.Outstanding()
	if n == 0 {
		return
	}
	log.WithFields(logrus.Fields{
		"buffers": n,
		"bytes":   bytes,
	}).Error("device memory leaked by call")
	if err := tr.Free(); err != nil {
		log.WithError(err).Warn("failed to reclaim leaked device memory")
	}
}
