package pipeline

import (
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/codec/codectest"
	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/gpu/gputest"
	"github.com/xupit3r/gpujpeg/internal/pixel"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// harness counts device allocations and live codec objects for one test
type harness struct {
	dev     *gputest.Device
	tracker *gpu.Tracker
	engine  *codectest.Engine
}

func newHarness() *harness {
	dev := gputest.NewCPU()
	return &harness{
		dev:     dev,
		tracker: gpu.Track(dev),
		engine:  codectest.New(codec.NewSoftwareEngine()),
	}
}

func (h *harness) opts() Options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Options{
		Device: h.tracker,
		Engine: h.engine,
		Params: codec.DefaultEncodeParams(),
		Log:    logrus.NewEntry(l),
	}
}

func (h *harness) assertBalanced(t *testing.T) {
	t.Helper()
	if n, bytes := h.tracker.Outstanding(); n != 0 {
		t.Errorf("%d device buffers (%d bytes) still allocated", n, bytes)
	}
	stats := h.tracker.Stats()
	if stats.Allocations != stats.Frees {
		t.Errorf("allocations = %d, frees = %d", stats.Allocations, stats.Frees)
	}
	if stats.DoubleFrees != 0 {
		t.Errorf("DoubleFrees = %d", stats.DoubleFrees)
	}
	if live := h.engine.Live(); live != 0 {
		t.Errorf("%d codec objects still alive", live)
	}
}

func testImage(height, width int) *pixel.Array {
	img := pixel.NewRGB(height, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			img.Data[i] = byte(x * 7)
			img.Data[i+1] = byte(y * 5)
			img.Data[i+2] = 200
		}
	}
	return img
}

func encodeOK(t *testing.T, img *pixel.Array) []byte {
	t.Helper()
	data, err := Encode(img, newHarness().opts())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestEncodeDecodeZeros(t *testing.T) {
	h := newHarness()

	data, err := Encode(pixel.NewRGB(2, 2), h.opts())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode returned no data")
	}

	out, err := Decode(data, h.opts())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Shape) != 3 || out.Shape[0] != 2 || out.Shape[1] != 2 || out.Shape[2] != 3 {
		t.Fatalf("shape = %v, want [2 2 3]", out.Shape)
	}
	for i, v := range out.Data {
		if v > 8 {
			t.Errorf("sample %d = %d, want near zero", i, v)
		}
	}

	h.assertBalanced(t)
	if stats := h.tracker.Stats(); stats.Allocations != 2 {
		t.Errorf("Allocations = %d, want one per call", stats.Allocations)
	}
}

func TestRoundTripShapes(t *testing.T) {
	sizes := [][2]int{{1, 1}, {8, 8}, {23, 37}, {64, 17}}

	for _, sz := range sizes {
		h := newHarness()
		img := testImage(sz[0], sz[1])

		data, err := Encode(img, h.opts())
		if err != nil {
			t.Fatalf("%v: Encode failed: %v", sz, err)
		}
		out, err := Decode(data, h.opts())
		if err != nil {
			t.Fatalf("%v: Decode failed: %v", sz, err)
		}
		if out.Shape[0] != sz[0] || out.Shape[1] != sz[1] || out.Shape[2] != 3 {
			t.Errorf("%v: shape = %v", sz, out.Shape)
		}
		h.assertBalanced(t)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	for _, data := range [][]byte{nil, {}} {
		h := newHarness()

		out, err := Decode(data, h.opts())
		if out != nil {
			t.Error("Decode returned a result on failure")
		}
		if !errors.Is(err, status.ErrCodecOperationFailed) {
			t.Fatalf("Decode = %v, want ErrCodecOperationFailed", err)
		}
		if status.StageOf(err) != codec.StageImageInfo {
			t.Errorf("stage = %q, want %q", status.StageOf(err), codec.StageImageInfo)
		}
		if h.tracker.Stats().Allocations != 0 {
			t.Error("header failure must not allocate device memory")
		}
		h.assertBalanced(t)
	}
}

func TestDecodeNotJPEG(t *testing.T) {
	h := newHarness()

	_, err := Decode([]byte("\x89PNG\r\n\x1a\n not a jpeg"), h.opts())
	if !errors.Is(err, status.ErrCodecOperationFailed) {
		t.Fatalf("Decode = %v, want ErrCodecOperationFailed", err)
	}
	if status.CodeOf(err) != int(status.BadJPEG) {
		t.Errorf("CodeOf = %d, want %d", status.CodeOf(err), status.BadJPEG)
	}
	if !strings.Contains(err.Error(), status.DocURL) {
		t.Errorf("message should reference the status documentation: %v", err)
	}
	if h.tracker.Stats().Allocations != 0 {
		t.Error("header failure must not allocate device memory")
	}
	h.assertBalanced(t)
}

func TestDecodeOversizedHeader(t *testing.T) {
	// A bare frame header claiming 65535x65535 with no scan data
	data := []byte{
		0xFF, 0xD8,
		0xFF, 0xC0, 0x00, 0x11, 0x08, 0xFF, 0xFF, 0xFF, 0xFF, 0x03,
		0x01, 0x22, 0x00,
		0x02, 0x11, 0x01,
		0x03, 0x11, 0x01,
		0xFF, 0xD9,
	}
	h := newHarness()

	img, err := Decode(data, h.opts())
	if img != nil {
		t.Error("failed decode must not return an image")
	}
	if !errors.Is(err, status.ErrDeviceAllocationFailed) {
		t.Fatalf("Decode = %v, want ErrDeviceAllocationFailed", err)
	}
	if status.StageOf(err) != StageAllocate {
		t.Errorf("stage = %q, want %q", status.StageOf(err), StageAllocate)
	}
	if h.tracker.Stats().FailedAllocations != 1 {
		t.Errorf("FailedAllocations = %d, want 1", h.tracker.Stats().FailedAllocations)
	}
	h.assertBalanced(t)
}

func TestEncodeRejectsBadArrays(t *testing.T) {
	tests := []struct {
		name string
		img  *pixel.Array
	}{
		{"nil", nil},
		{"2-D", &pixel.Array{Shape: []int{4, 4}, DType: pixel.Uint8, Data: make([]byte, 16)}},
		{"4-D", &pixel.Array{Shape: []int{1, 2, 2, 3}, DType: pixel.Uint8, Data: make([]byte, 12)}},
		{"float32", &pixel.Array{Shape: []int{2, 2, 3}, DType: pixel.Float32, Data: make([]byte, 48)}},
		{"RGBA", &pixel.Array{Shape: []int{2, 2, 4}, DType: pixel.Uint8, Data: make([]byte, 16)}},
		{"zero height", &pixel.Array{Shape: []int{0, 2, 3}, DType: pixel.Uint8}},
		{"short data", &pixel.Array{Shape: []int{2, 2, 3}, DType: pixel.Uint8, Data: make([]byte, 5)}},
		{"overflowing shape", &pixel.Array{Shape: []int{1 << 33, 1 << 31, 3}, DType: pixel.Uint8}},
		{"overflowing row", &pixel.Array{Shape: []int{1, math.MaxInt / 2, 3}, DType: pixel.Uint8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()

			_, err := Encode(tt.img, h.opts())
			if !errors.Is(err, status.ErrInvalidArgument) {
				t.Fatalf("Encode = %v, want ErrInvalidArgument", err)
			}
			if h.engine.Created() != 0 {
				t.Error("invalid input must not open a codec session")
			}
			if h.tracker.Stats().Allocations != 0 {
				t.Error("invalid input must not allocate device memory")
			}
		})
	}
}

func TestEncodeRejectsBadParams(t *testing.T) {
	h := newHarness()
	opts := h.opts()
	opts.Params.Quality = 0

	if _, err := Encode(testImage(4, 4), opts); !errors.Is(err, status.ErrInvalidArgument) {
		t.Fatalf("Encode = %v, want ErrInvalidArgument", err)
	}
	if h.engine.Created() != 0 {
		t.Error("invalid params must not open a codec session")
	}
}

func TestEncodeEngineFaults(t *testing.T) {
	stages := []struct {
		stage string
		kind  error
	}{
		{codec.StageCreateHandle, status.ErrEngineUnavailable},
		{codec.StageEncoderStateCreate, status.ErrCodecOperationFailed},
		{codec.StageEncoderParamsCreate, status.ErrCodecOperationFailed},
		{codec.StageSetQuality, status.ErrCodecOperationFailed},
		{codec.StageSetSampling, status.ErrCodecOperationFailed},
		{codec.StageEncode, status.ErrCodecOperationFailed},
		{codec.StageBitstreamLength, status.ErrCodecOperationFailed},
		{codec.StageRetrieveBitstream, status.ErrCodecOperationFailed},
	}

	for _, tt := range stages {
		t.Run(tt.stage, func(t *testing.T) {
			h := newHarness()
			h.engine.Fail(tt.stage, status.ExecutionFailed)

			data, err := Encode(testImage(8, 8), h.opts())
			if data != nil {
				t.Error("no partial result may be returned")
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Encode = %v, want %v", err, tt.kind)
			}
			if status.StageOf(err) != tt.stage {
				t.Errorf("stage = %q, want %q", status.StageOf(err), tt.stage)
			}
			if status.CodeOf(err) != int(status.ExecutionFailed) {
				t.Errorf("CodeOf = %d, want %d", status.CodeOf(err), status.ExecutionFailed)
			}
			h.assertBalanced(t)
		})
	}
}

func TestDecodeEngineFaults(t *testing.T) {
	data := encodeOK(t, testImage(8, 8))

	stages := []struct {
		stage string
		kind  error
	}{
		{codec.StageCreateHandle, status.ErrEngineUnavailable},
		{codec.StageDecoderStateCreate, status.ErrCodecOperationFailed},
		{codec.StageImageInfo, status.ErrCodecOperationFailed},
		{codec.StageDecode, status.ErrCodecOperationFailed},
	}

	for _, tt := range stages {
		t.Run(tt.stage, func(t *testing.T) {
			h := newHarness()
			h.engine.Fail(tt.stage, status.JPEGNotSupported)

			out, err := Decode(data, h.opts())
			if out != nil {
				t.Error("no partial result may be returned")
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Decode = %v, want %v", err, tt.kind)
			}
			if status.StageOf(err) != tt.stage {
				t.Errorf("stage = %q, want %q", status.StageOf(err), tt.stage)
			}
			h.assertBalanced(t)
		})
	}
}

func TestEncodeDeviceFaults(t *testing.T) {
	oom := &gpu.RuntimeError{Op: "cudaMalloc", Code: 2, Msg: "out of memory"}
	xfer := &gpu.RuntimeError{Op: "cudaMemcpy", Code: 1, Msg: "invalid argument"}
	lost := &gpu.RuntimeError{Op: "cudaDeviceSynchronize", Code: 700, Msg: "an illegal memory access was encountered"}

	tests := []struct {
		name   string
		inject func(*gputest.Device)
		kind   error
		stage  string
		code   int
		text   string
	}{
		{"allocate", func(d *gputest.Device) { d.AllocateErr = oom }, status.ErrDeviceAllocationFailed, StageAllocate, 2, "out of memory"},
		{"copy in", func(d *gputest.Device) { d.CopyFromHostErr = xfer }, status.ErrDeviceTransferFailed, StageCopyToDevice, 1, "invalid argument"},
		{"sync", func(d *gputest.Device) { d.SyncErr = lost }, status.ErrCodecOperationFailed, StageSynchronize, 700, "illegal memory access"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.inject(h.dev)

			_, err := Encode(testImage(8, 8), h.opts())
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Encode = %v, want %v", err, tt.kind)
			}
			if status.StageOf(err) != tt.stage {
				t.Errorf("stage = %q, want %q", status.StageOf(err), tt.stage)
			}
			if status.CodeOf(err) != tt.code {
				t.Errorf("CodeOf = %d, want %d", status.CodeOf(err), tt.code)
			}
			if !strings.Contains(err.Error(), tt.text) {
				t.Errorf("message %q should carry the backend diagnostic %q", err, tt.text)
			}
			h.assertBalanced(t)
		})
	}
}

func TestDecodeDeviceFaults(t *testing.T) {
	data := encodeOK(t, testImage(8, 8))
	fail := errors.New("device lost")

	tests := []struct {
		name   string
		inject func(*gputest.Device)
		kind   error
		stage  string
	}{
		{"allocate", func(d *gputest.Device) { d.AllocateErr = fail }, status.ErrDeviceAllocationFailed, StageAllocate},
		{"copy out", func(d *gputest.Device) { d.CopyToHostErr = fail }, status.ErrDeviceTransferFailed, StageCopyToHost},
		{"sync", func(d *gputest.Device) { d.SyncErr = fail }, status.ErrCodecOperationFailed, StageSynchronize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.inject(h.dev)

			out, err := Decode(data, h.opts())
			if out != nil {
				t.Error("no partial result may be returned")
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Decode = %v, want %v", err, tt.kind)
			}
			if status.StageOf(err) != tt.stage {
				t.Errorf("stage = %q, want %q", status.StageOf(err), tt.stage)
			}
			h.assertBalanced(t)
		})
	}
}

func TestTeardownFailureDoesNotMaskOutcome(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness()
		h.engine.Fail(codectest.StageDestroyEncoderParams, status.InternalError)

		data, err := Encode(testImage(4, 4), h.opts())
		if err != nil {
			t.Fatalf("teardown failure replaced a successful result: %v", err)
		}
		if len(data) == 0 {
			t.Error("expected encoded data")
		}
		h.assertBalanced(t)
	})

	t.Run("failure", func(t *testing.T) {
		h := newHarness()
		h.engine.Fail(codec.StageEncode, status.ExecutionFailed)
		h.engine.Fail(codectest.StageDestroyHandle, status.InternalError)

		_, err := Encode(testImage(4, 4), h.opts())
		if status.StageOf(err) != codec.StageEncode {
			t.Fatalf("teardown failure masked the original error: %v", err)
		}
		h.assertBalanced(t)
	})
}

func TestTeardownOrder(t *testing.T) {
	h := newHarness()

	if _, err := Encode(testImage(4, 4), h.opts()); err != nil {
		t.Fatal(err)
	}

	want := []string{"encoder params", "encoder state", "handle"}
	got := h.engine.Destroyed()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("destroy order = %v, want %v", got, want)
	}
}

func TestConcurrentCalls(t *testing.T) {
	h := newHarness()
	opts := h.opts()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			data, err := Encode(testImage(8+n, 8), opts)
			if err != nil {
				errs <- err
				return
			}
			out, err := Decode(data, opts)
			if err != nil {
				errs <- err
				return
			}
			if out.Shape[0] != 8+n {
				errs <- errors.New("shape mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	h.assertBalanced(t)
}
