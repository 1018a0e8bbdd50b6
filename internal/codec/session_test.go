package codec_test

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/codec/codectest"
	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/status"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSessionCloseOrder(t *testing.T) {
	eng := codectest.New(codec.NewSoftwareEngine())

	sess, err := codec.Open(eng, quietLog())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := sess.EncoderState(); err != nil {
		t.Fatalf("EncoderState failed: %v", err)
	}
	if _, err := sess.EncoderParams(codec.DefaultEncodeParams()); err != nil {
		t.Fatalf("EncoderParams failed: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := []string{"encoder params", "encoder state", "handle"}
	got := eng.Destroyed()
	if len(got) != len(want) {
		t.Fatalf("destroyed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("destroy[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if eng.Live() != 0 {
		t.Errorf("Live = %d after Close", eng.Live())
	}

	// Idempotent
	if err := sess.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if len(eng.Destroyed()) != len(want) {
		t.Error("second Close destroyed objects again")
	}
}

func TestSessionOpenFailure(t *testing.T) {
	eng := codectest.New(codec.NewSoftwareEngine()).Fail(codec.StageCreateHandle, status.ArchMismatch)

	_, err := codec.Open(eng, quietLog())
	if !errors.Is(err, status.ErrEngineUnavailable) {
		t.Fatalf("Open = %v, want ErrEngineUnavailable", err)
	}
	if status.CodeOf(err) != int(status.ArchMismatch) {
		t.Errorf("CodeOf = %d, want %d", status.CodeOf(err), status.ArchMismatch)
	}
	if eng.Created() != 0 {
		t.Errorf("Created = %d after failed open", eng.Created())
	}
}

func TestSessionParamsFailureStillDestroysParams(t *testing.T) {
	stages := []string{codec.StageSetQuality, codec.StageSetSampling}

	for _, stage := range stages {
		t.Run(stage, func(t *testing.T) {
			eng := codectest.New(codec.NewSoftwareEngine()).Fail(stage, status.InvalidParameter)

			sess, err := codec.Open(eng, quietLog())
			if err != nil {
				t.Fatal(err)
			}

			_, err = sess.EncoderParams(codec.DefaultEncodeParams())
			if !errors.Is(err, status.ErrCodecOperationFailed) {
				t.Fatalf("EncoderParams = %v, want ErrCodecOperationFailed", err)
			}
			if status.StageOf(err) != stage {
				t.Errorf("StageOf = %q, want %q", status.StageOf(err), stage)
			}

			if err := sess.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if eng.Live() != 0 {
				t.Errorf("Live = %d after Close", eng.Live())
			}
		})
	}
}

func TestSessionCloseAggregatesFailures(t *testing.T) {
	eng := codectest.New(codec.NewSoftwareEngine()).
		Fail(codectest.StageDestroyDecoderState, status.InternalError).
		Fail(codectest.StageDestroyHandle, status.ExecutionFailed)

	sess, err := codec.Open(eng, quietLog())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.DecoderState(); err != nil {
		t.Fatal(err)
	}

	err = sess.Close()
	if err == nil {
		t.Fatal("expected Close to report teardown failures")
	}
	if !errors.Is(err, status.ErrCodecOperationFailed) {
		t.Errorf("Close error should match ErrCodecOperationFailed: %v", err)
	}
	if eng.Live() != 0 {
		t.Errorf("every object should still be destroyed, Live = %d", eng.Live())
	}
}

func TestSessionImageInfoRejectsGarbage(t *testing.T) {
	sess, err := codec.Open(codec.NewSoftwareEngine(), quietLog())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	for _, data := range [][]byte{nil, {}, []byte("not a jpeg")} {
		_, err := sess.ImageInfo(data)
		if !errors.Is(err, status.ErrCodecOperationFailed) {
			t.Errorf("ImageInfo(%q) = %v, want ErrCodecOperationFailed", data, err)
		}
		if status.CodeOf(err) != int(status.BadJPEG) {
			t.Errorf("CodeOf = %d, want BadJPEG", status.CodeOf(err))
		}
	}
}

func TestEngineByName(t *testing.T) {
	dev := gpu.NewCPUDevice()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "software", false},
		{"auto", "software", false},
		{"Software", "software", false},
		{"nvjpeg", "", true},
		{"libjpeg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := codec.EngineByName(tt.name, dev, quietLog())
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("EngineByName(%q) failed: %v", tt.name, err)
			}
			if eng.Name() != tt.want {
				t.Errorf("engine = %q, want %q", eng.Name(), tt.want)
			}
		})
	}
}

func TestParseSubsampling(t *testing.T) {
	tests := []struct {
		in   string
		want codec.Subsampling
		ok   bool
	}{
		{"420", codec.CSS420, true},
		{"4:2:0", codec.CSS420, true},
		{"4:4:4", codec.CSS444, true},
		{"GRAY", codec.CSSGray, true},
		{"410v", codec.CSS410V, true},
		{"4:2:1", codec.CSSUnknown, false},
	}

	for _, tt := range tests {
		got, err := codec.ParseSubsampling(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseSubsampling(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSubsampling(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  codec.EncodeParams
		wantErr bool
	}{
		{"defaults", codec.DefaultEncodeParams(), false},
		{"quality 1", codec.EncodeParams{Quality: 1, Subsampling: codec.CSS444}, false},
		{"quality 0", codec.EncodeParams{Quality: 0, Subsampling: codec.CSS420}, true},
		{"quality 101", codec.EncodeParams{Quality: 101, Subsampling: codec.CSS420}, true},
		{"unknown css", codec.EncodeParams{Quality: 90, Subsampling: codec.CSSUnknown}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, status.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSubsamplingFromFactors(t *testing.T) {
	tests := []struct {
		h, v []int
		want codec.Subsampling
	}{
		{[]int{1}, []int{1}, codec.CSSGray},
		{[]int{1, 1, 1}, []int{1, 1, 1}, codec.CSS444},
		{[]int{2, 1, 1}, []int{1, 1, 1}, codec.CSS422},
		{[]int{2, 1, 1}, []int{2, 1, 1}, codec.CSS420},
		{[]int{1, 1, 1}, []int{2, 1, 1}, codec.CSS440},
		{[]int{4, 1, 1}, []int{1, 1, 1}, codec.CSS411},
		{[]int{4, 1, 1}, []int{2, 1, 1}, codec.CSS410},
		{[]int{2, 1, 1}, []int{4, 1, 1}, codec.CSS410V},
		{[]int{2, 1, 2}, []int{2, 1, 1}, codec.CSSUnknown},
		{[]int{1, 1, 1, 1}, []int{1, 1, 1, 1}, codec.CSSUnknown},
	}

	for _, tt := range tests {
		if got := codec.SubsamplingFromFactors(tt.h, tt.v); got != tt.want {
			t.Errorf("SubsamplingFromFactors(%v, %v) = %v, want %v", tt.h, tt.v, got, tt.want)
		}
	}
}
