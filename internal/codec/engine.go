package codec

import (
	"fmt"
	"strings"

	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// Engine constructs codec handles. Every call reports a native status code
// rather than a Go error; Session translates them.
type Engine interface {
	// Name returns the engine name (e.g. "nvjpeg", "software")
	Name() string

	// Open creates a new library handle
	Open() (Handle, status.Code)
}

// Handle is one codec library handle and the operations bound to it
type Handle interface {
	CreateEncoderState() (EncoderState, status.Code)
	CreateEncoderParams() (EncoderParams, status.Code)
	CreateDecoderState() (DecoderState, status.Code)

	// ImageInfo parses the stream header without decoding
	ImageInfo(data []byte) (ImageInfo, status.Code)

	// Encode compresses src into the state's internal bitstream
	Encode(state EncoderState, params EncoderParams, src Image) status.Code

	// RetrieveBitstream copies the last encoded bitstream into dst and returns
	// its length. A nil dst only queries the length.
	RetrieveBitstream(state EncoderState, dst []byte) (int, status.Code)

	// Decode decompresses data into dst as interleaved RGB
	Decode(state DecoderState, data []byte, dst Image) status.Code

	// Destroy releases the handle. Sub-objects must already be destroyed.
	Destroy() status.Code
}

// EncoderState holds per-encode intermediate buffers and the output bitstream
type EncoderState interface {
	Destroy() status.Code
}

// EncoderParams holds encode configuration
type EncoderParams interface {
	SetQuality(quality int) status.Code
	SetSamplingFactors(s Subsampling) status.Code
	Destroy() status.Code
}

// DecoderState holds per-decode intermediate buffers
type DecoderState interface {
	Destroy() status.Code
}

// Image describes an interleaved RGB plane resident in device memory
type Image struct {
	Buffer gpu.Buffer
	Width  int
	Height int
	Pitch  int // bytes per row
}

// ImageInfo is the metadata parsed from a stream header
type ImageInfo struct {
	Width       int
	Height      int
	Components  int
	Subsampling Subsampling
}

// Subsampling is a chroma subsampling scheme. Values match nvjpegChromaSubsampling_t.
type Subsampling int

const (
	CSS444     Subsampling = 0
	CSS422     Subsampling = 1
	CSS420     Subsampling = 2
	CSS440     Subsampling = 3
	CSS411     Subsampling = 4
	CSS410     Subsampling = 5
	CSSGray    Subsampling = 6
	CSS410V    Subsampling = 7
	CSSUnknown Subsampling = -1
)

var subsamplingNames = map[Subsampling]string{
	CSS444:  "444",
	CSS422:  "422",
	CSS420:  "420",
	CSS440:  "440",
	CSS411:  "411",
	CSS410:  "410",
	CSSGray: "gray",
	CSS410V: "410v",
}

func (s Subsampling) String() string {
	if name, ok := subsamplingNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSubsampling parses names such as "420", "4:2:0" or "gray"
func ParseSubsampling(name string) (Subsampling, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), ":", ""))
	for s, n := range subsamplingNames {
		if n == key {
			return s, nil
		}
	}
	return CSSUnknown, fmt.Errorf("unknown chroma subsampling: %q", name)
}

// EncodeParams are the settings applied to encoder params before encoding
type EncodeParams struct {
	Quality     int
	Subsampling Subsampling
}

// Default encode settings
const (
	DefaultQuality     = 90
	DefaultSubsampling = CSS420
)

// DefaultEncodeParams returns quality 90 with 4:2:0 subsampling
func DefaultEncodeParams() EncodeParams {
	return EncodeParams{
		Quality:     DefaultQuality,
		Subsampling: DefaultSubsampling,
	}
}

// Validate checks the parameters before any resource is acquired
func (p EncodeParams) Validate() error {
	if p.Quality < 1 || p.Quality > 100 {
		return status.InvalidArgument("quality must be between 1 and 100, got %d", p.Quality)
	}
	if _, ok := subsamplingNames[p.Subsampling]; !ok {
		return status.InvalidArgument("unknown chroma subsampling %d", int(p.Subsampling))
	}
	return nil
}

// SubsamplingFromFactors derives the scheme from per-component sampling
// factors (h, v) as listed in the frame header
func SubsamplingFromFactors(h, v []int) Subsampling {
	if len(h) != len(v) {
		return CSSUnknown
	}

	switch len(h) {
	case 1:
		return CSSGray
	case 3:
	default:
		return CSSUnknown
	}

	// Chroma planes must share one sampling factor that divides luma's
	if h[1] != h[2] || v[1] != v[2] || h[1] == 0 || v[1] == 0 {
		return CSSUnknown
	}
	if h[0]%h[1] != 0 || v[0]%v[1] != 0 {
		return CSSUnknown
	}

	switch [2]int{h[0] / h[1], v[0] / v[1]} {
	case [2]int{1, 1}:
		return CSS444
	case [2]int{2, 1}:
		return CSS422
	case [2]int{2, 2}:
		return CSS420
	case [2]int{1, 2}:
		return CSS440
	case [2]int{4, 1}:
		return CSS411
	case [2]int{4, 2}:
		return CSS410
	case [2]int{2, 4}:
		return CSS410V
	}
	return CSSUnknown
}
