//go:build linux && cgo && cuda

package codec

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lnvjpeg -lcudart

#include <nvjpeg.h>
#include <string.h>

static nvjpegStatus_t encodeRGBI(nvjpegHandle_t h, nvjpegEncoderState_t st, nvjpegEncoderParams_t p,
                                 unsigned long long ptr, size_t pitch, int width, int height) {
    nvjpegImage_t img;
    memset(&img, 0, sizeof(img));
    img.channel[0] = (unsigned char*)ptr;
    img.pitch[0] = pitch;
    return nvjpegEncodeImage(h, st, p, &img, NVJPEG_INPUT_RGBI, width, height, NULL);
}

static nvjpegStatus_t decodeRGBI(nvjpegHandle_t h, nvjpegJpegState_t st,
                                 const unsigned char* data, size_t length,
                                 unsigned long long ptr, size_t pitch) {
    nvjpegImage_t img;
    memset(&img, 0, sizeof(img));
    img.channel[0] = (unsigned char*)ptr;
    img.pitch[0] = pitch;
    return nvjpegDecode(h, st, data, length, NVJPEG_OUTPUT_RGBI, &img, NULL);
}

static nvjpegStatus_t imageInfo(nvjpegHandle_t h, const unsigned char* data, size_t length,
                                int* components, int* subsampling, int* width, int* height) {
    nvjpegChromaSubsampling_t css;
    int widths[NVJPEG_MAX_COMPONENT];
    int heights[NVJPEG_MAX_COMPONENT];
    nvjpegStatus_t s = nvjpegGetImageInfo(h, data, length, components, &css, widths, heights);
    if (s == NVJPEG_STATUS_SUCCESS) {
        *subsampling = (int)css;
        *width = widths[0];
        *height = heights[0];
    }
    return s;
}
*/
import "C"
import (
	"unsafe"

	"github.com/xupit3r/gpujpeg/internal/status"
)

// NVJPEGEngine drives the nvJPEG library on the default CUDA stream
type NVJPEGEngine struct{}

// NewNVJPEGEngine returns the hardware engine. Availability of the library is
// only known once a handle is opened.
func NewNVJPEGEngine() (Engine, error) {
	return &NVJPEGEngine{}, nil
}

func (e *NVJPEGEngine) Name() string { return "nvjpeg" }

func (e *NVJPEGEngine) Open() (Handle, status.Code) {
	var h C.nvjpegHandle_t
	if s := C.nvjpegCreateSimple(&h); s != C.NVJPEG_STATUS_SUCCESS {
		return nil, status.Code(s)
	}
	return &nvjpegHandle{h: h}, status.Success
}

type nvjpegHandle struct {
	h C.nvjpegHandle_t
}

type nvjpegEncoderState struct {
	st C.nvjpegEncoderState_t
}

type nvjpegEncoderParams struct {
	p C.nvjpegEncoderParams_t
}

type nvjpegDecoderState struct {
	st C.nvjpegJpegState_t
}

// bytesPtr returns a C view of data, or nil when empty
func bytesPtr(data []byte) *C.uchar {
	if len(data) == 0 {
		return nil
	}
	return (*C.uchar)(unsafe.Pointer(&data[0]))
}

func (h *nvjpegHandle) CreateEncoderState() (EncoderState, status.Code) {
	var st C.nvjpegEncoderState_t
	if s := C.nvjpegEncoderStateCreate(h.h, &st, nil); s != C.NVJPEG_STATUS_SUCCESS {
		return nil, status.Code(s)
	}
	return &nvjpegEncoderState{st: st}, status.Success
}

func (h *nvjpegHandle) CreateEncoderParams() (EncoderParams, status.Code) {
	var p C.nvjpegEncoderParams_t
	if s := C.nvjpegEncoderParamsCreate(h.h, &p, nil); s != C.NVJPEG_STATUS_SUCCESS {
		return nil, status.Code(s)
	}
	return &nvjpegEncoderParams{p: p}, status.Success
}

func (h *nvjpegHandle) CreateDecoderState() (DecoderState, status.Code) {
	var st C.nvjpegJpegState_t
	if s := C.nvjpegJpegStateCreate(h.h, &st); s != C.NVJPEG_STATUS_SUCCESS {
		return nil, status.Code(s)
	}
	return &nvjpegDecoderState{st: st}, status.Success
}

func (h *nvjpegHandle) ImageInfo(data []byte) (ImageInfo, status.Code) {
	var components, css, width, height C.int
	s := C.imageInfo(h.h, bytesPtr(data), C.size_t(len(data)), &components, &css, &width, &height)
	if s != C.NVJPEG_STATUS_SUCCESS {
		return ImageInfo{}, status.Code(s)
	}
	return ImageInfo{
		Width:       int(width),
		Height:      int(height),
		Components:  int(components),
		Subsampling: Subsampling(css),
	}, status.Success
}

func (h *nvjpegHandle) Encode(state EncoderState, params EncoderParams, src Image) status.Code {
	st, ok := state.(*nvjpegEncoderState)
	if !ok {
		return status.InvalidParameter
	}
	p, ok := params.(*nvjpegEncoderParams)
	if !ok {
		return status.InvalidParameter
	}
	if src.Buffer == nil || src.Buffer.Ptr() == 0 {
		return status.InvalidParameter
	}

	s := C.encodeRGBI(h.h, st.st, p.p,
		C.ulonglong(src.Buffer.Ptr()), C.size_t(src.Pitch),
		C.int(src.Width), C.int(src.Height))
	return status.Code(s)
}

func (h *nvjpegHandle) RetrieveBitstream(state EncoderState, dst []byte) (int, status.Code) {
	st, ok := state.(*nvjpegEncoderState)
	if !ok {
		return 0, status.InvalidParameter
	}

	length := C.size_t(len(dst))
	s := C.nvjpegEncodeRetrieveBitstream(h.h, st.st, bytesPtr(dst), &length, nil)
	if s != C.NVJPEG_STATUS_SUCCESS {
		return 0, status.Code(s)
	}
	return int(length), status.Success
}

func (h *nvjpegHandle) Decode(state DecoderState, data []byte, dst Image) status.Code {
	st, ok := state.(*nvjpegDecoderState)
	if !ok {
		return status.InvalidParameter
	}
	if dst.Buffer == nil || dst.Buffer.Ptr() == 0 {
		return status.InvalidParameter
	}

	s := C.decodeRGBI(h.h, st.st, bytesPtr(data), C.size_t(len(data)),
		C.ulonglong(dst.Buffer.Ptr()), C.size_t(dst.Pitch))
	return status.Code(s)
}

func (h *nvjpegHandle) Destroy() status.Code {
	return status.Code(C.nvjpegDestroy(h.h))
}

func (s *nvjpegEncoderState) Destroy() status.Code {
	return status.Code(C.nvjpegEncoderStateDestroy(s.st))
}

func (p *nvjpegEncoderParams) SetQuality(quality int) status.Code {
	return status.Code(C.nvjpegEncoderParamsSetQuality(p.p, C.int(quality), nil))
}

func (p *nvjpegEncoderParams) SetSamplingFactors(css Subsampling) status.Code {
	return status.Code(C.nvjpegEncoderParamsSetSamplingFactors(p.p, C.nvjpegChromaSubsampling_t(css), nil))
}

func (p *nvjpegEncoderParams) Destroy() status.Code {
	return status.Code(C.nvjpegEncoderParamsDestroy(p.p))
}

func (s *nvjpegDecoderState) Destroy() status.Code {
	return status.Code(C.nvjpegJpegStateDestroy(s.st))
}
