package pixel

import (
	"fmt"
	"math"

	"github.com/xupit3r/gpujpeg/internal/status"
)

// Channels is the fixed channel count of encode input and decode output
const Channels = 3

// DType is the sample type of an Array
type DType int

const (
	Uint8 DType = iota
	Int8
	Uint16
	Int16
	Int32
	Float32
	Float64
)

var dtypeNames = [...]string{"uint8", "int8", "uint16", "int16", "int32", "float32", "float64"}
var dtypeSizes = [...]int{1, 1, 2, 2, 4, 4, 8}

func (d DType) String() string {
	if d < 0 || int(d) >= len(dtypeNames) {
		return fmt.Sprintf("dtype(%d)", int(d))
	}
	return dtypeNames[d]
}

// Size returns the number of bytes per sample, or 0 for an unknown dtype
func (d DType) Size() int {
	if d < 0 || int(d) >= len(dtypeSizes) {
		return 0
	}
	return dtypeSizes[d]
}

// Array is a host-resident, row-major, channel-interleaved sample array
type Array struct {
	Shape []int
	DType DType
	Data  []byte
}

// NewRGB allocates a zeroed (height, width, 3) uint8 array
func NewRGB(height, width int) *Array {
	return &Array{
		Shape: []int{height, width, Channels},
		DType: Uint8,
		Data:  make([]byte, height*width*Channels),
	}
}

// Len returns the number of samples implied by Shape
func (a *Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// RGBShape validates that a is a (H, W, 3) uint8 array whose data matches
// its shape, and returns H, W and the row stride in bytes.
func (a *Array) RGBShape() (height, width, stride int, err error) {
	if a == nil {
		return 0, 0, 0, status.InvalidArgument("image must not be nil")
	}
	if len(a.Shape) != 3 {
		return 0, 0, 0, status.InvalidArgument("image must have 3 dimensions (height, width, channel), got %d", len(a.Shape))
	}
	if a.DType != Uint8 {
		return 0, 0, 0, status.InvalidArgument("image samples must be uint8, got %s", a.DType)
	}

	height, width = a.Shape[0], a.Shape[1]
	if height <= 0 || width <= 0 {
		return 0, 0, 0, status.InvalidArgument("image dimensions must be positive, got %dx%d", width, height)
	}
	if a.Shape[2] != Channels {
		return 0, 0, 0, status.InvalidArgument("image must have %d interleaved channels, got %d", Channels, a.Shape[2])
	}
	if width > math.MaxInt/Channels/height {
		return 0, 0, 0, status.InvalidArgument("image shape %v is too large", a.Shape)
	}
	if want := height * width * Channels; len(a.Data) != want {
		return 0, 0, 0, status.InvalidArgument("image data holds %d bytes, shape %v needs %d", len(a.Data), a.Shape, want)
	}

	return height, width, width * Channels, nil
}

// At returns the sample at (y, x, c) of a uint8 array
func (a *Array) At(y, x, c int) uint8 {
	return a.Data[(y*a.Shape[1]+x)*a.Shape[2]+c]
}
