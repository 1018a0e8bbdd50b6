package codec

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/draw"

	"github.com/xupit3r/gpujpeg/internal/jfif"
	"github.com/xupit3r/gpujpeg/internal/pixel"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// SoftwareEngine implements Engine on the host with image/jpeg. It reads and
// writes device memory only through gpu.Buffer copies, so it runs against any
// device, and it reports the same status vocabulary as the hardware engine.
type SoftwareEngine struct{}

// NewSoftwareEngine creates a software engine
func NewSoftwareEngine() *SoftwareEngine {
	return &SoftwareEngine{}
}

func (e *SoftwareEngine) Name() string { return "software" }

func (e *SoftwareEngine) Open() (Handle, status.Code) {
	return &softwareHandle{}, status.Success
}

type softwareHandle struct {
	live      int // sub-objects not yet destroyed
	destroyed bool
}

type softwareEncoderState struct {
	handle    *softwareHandle
	bitstream []byte
	destroyed bool
}

type softwareEncoderParams struct {
	handle      *softwareHandle
	quality     int
	subsampling Subsampling
	destroyed   bool
}

type softwareDecoderState struct {
	handle    *softwareHandle
	destroyed bool
}

func (h *softwareHandle) CreateEncoderState() (EncoderState, status.Code) {
	if h.destroyed {
		return nil, status.NotInitialized
	}
	h.live++
	return &softwareEncoderState{handle: h}, status.Success
}

func (h *softwareHandle) CreateEncoderParams() (EncoderParams, status.Code) {
	if h.destroyed {
		return nil, status.NotInitialized
	}
	h.live++
	// Library defaults before any setter runs
	return &softwareEncoderParams{handle: h, quality: 70, subsampling: CSS444}, status.Success
}

func (h *softwareHandle) CreateDecoderState() (DecoderState, status.Code) {
	if h.destroyed {
		return nil, status.NotInitialized
	}
	h.live++
	return &softwareDecoderState{handle: h}, status.Success
}

func (h *softwareHandle) ImageInfo(data []byte) (ImageInfo, status.Code) {
	if h.destroyed {
		return ImageInfo{}, status.NotInitialized
	}

	hdr, err := jfif.Parse(data)
	if err != nil {
		return ImageInfo{}, status.BadJPEG
	}

	hs := make([]int, len(hdr.Components))
	vs := make([]int, len(hdr.Components))
	for i, c := range hdr.Components {
		hs[i], vs[i] = int(c.H), int(c.V)
	}

	return ImageInfo{
		Width:       hdr.Width,
		Height:      hdr.Height,
		Components:  len(hdr.Components),
		Subsampling: SubsamplingFromFactors(hs, vs),
	}, status.Success
}

func (h *softwareHandle) Encode(state EncoderState, params EncoderParams, src Image) status.Code {
	if h.destroyed {
		return status.NotInitialized
	}
	st, ok := state.(*softwareEncoderState)
	if !ok || st.handle != h || st.destroyed {
		return status.InvalidParameter
	}
	p, ok := params.(*softwareEncoderParams)
	if !ok || p.handle != h || p.destroyed {
		return status.InvalidParameter
	}
	if !validPlane(src) {
		return status.InvalidParameter
	}

	host := make([]byte, src.Buffer.Size())
	if err := src.Buffer.CopyToHost(host); err != nil {
		return status.ExecutionFailed
	}

	var img image.Image = pixel.NewRGBImage(host, src.Width, src.Height, src.Pitch).RGBA()
	if p.subsampling == CSSGray {
		gray := image.NewGray(img.Bounds())
		draw.Draw(gray, gray.Bounds(), img, image.Point{}, draw.Src)
		img = gray
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return status.ExecutionFailed
	}
	st.bitstream = out.Bytes()

	return status.Success
}

func (h *softwareHandle) RetrieveBitstream(state EncoderState, dst []byte) (int, status.Code) {
	if h.destroyed {
		return 0, status.NotInitialized
	}
	st, ok := state.(*softwareEncoderState)
	if !ok || st.handle != h || st.destroyed || len(st.bitstream) == 0 {
		return 0, status.InvalidParameter
	}

	if dst == nil {
		return len(st.bitstream), status.Success
	}
	if len(dst) < len(st.bitstream) {
		return 0, status.InvalidParameter
	}
	return copy(dst, st.bitstream), status.Success
}

func (h *softwareHandle) Decode(state DecoderState, data []byte, dst Image) status.Code {
	if h.destroyed {
		return status.NotInitialized
	}
	st, ok := state.(*softwareDecoderState)
	if !ok || st.handle != h || st.destroyed {
		return status.InvalidParameter
	}
	if !validPlane(dst) {
		return status.InvalidParameter
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return decodeStatus(err)
	}

	b := img.Bounds()
	if b.Dx() != dst.Width || b.Dy() != dst.Height {
		return status.InvalidParameter
	}

	host := make([]byte, dst.Buffer.Size())
	pixel.DrawInto(host, dst.Pitch, img)
	if err := dst.Buffer.CopyFromHost(host); err != nil {
		return status.ExecutionFailed
	}

	return status.Success
}

func (h *softwareHandle) Destroy() status.Code {
	if h.destroyed {
		return status.NotInitialized
	}
	if h.live > 0 {
		return status.InvalidParameter
	}
	h.destroyed = true
	return status.Success
}

func (s *softwareEncoderState) Destroy() status.Code {
	if s.destroyed {
		return status.NotInitialized
	}
	s.destroyed = true
	s.bitstream = nil
	s.handle.live--
	return status.Success
}

func (p *softwareEncoderParams) SetQuality(quality int) status.Code {
	if p.destroyed {
		return status.NotInitialized
	}
	if quality < 1 || quality > 100 {
		return status.InvalidParameter
	}
	p.quality = quality
	return status.Success
}

func (p *softwareEncoderParams) SetSamplingFactors(s Subsampling) status.Code {
	if p.destroyed {
		return status.NotInitialized
	}
	// image/jpeg writes 4:2:0 for color input and a single plane for gray
	switch s {
	case CSS420, CSSGray:
		p.subsampling = s
		return status.Success
	case CSS444, CSS422, CSS440, CSS411, CSS410, CSS410V:
		return status.ImplementationNotSupported
	default:
		return status.InvalidParameter
	}
}

func (p *softwareEncoderParams) Destroy() status.Code {
	if p.destroyed {
		return status.NotInitialized
	}
	p.destroyed = true
	p.handle.live--
	return status.Success
}

func (s *softwareDecoderState) Destroy() status.Code {
	if s.destroyed {
		return status.NotInitialized
	}
	s.destroyed = true
	s.handle.live--
	return status.Success
}

// validPlane checks that img describes an interleaved RGB plane that fits its buffer
func validPlane(img Image) bool {
	if img.Buffer == nil || img.Width <= 0 || img.Height <= 0 {
		return false
	}
	if img.Pitch < img.Width*pixel.Channels {
		return false
	}
	need := int64(img.Pitch)*int64(img.Height-1) + int64(img.Width*pixel.Channels)
	return img.Buffer.Size() >= need
}

func decodeStatus(err error) status.Code {
	var unsupported jpeg.UnsupportedError
	var format jpeg.FormatError
	switch {
	case errors.As(err, &unsupported):
		return status.JPEGNotSupported
	case errors.As(err, &format):
		return status.BadJPEG
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return status.IncompleteBitstream
	default:
		return status.BadJPEG
	}
}
