package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"

	"github.com/xupit3r/gpujpeg/internal/config"
)

// run executes the command tree with args against the CPU device and software engine
func run(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewReader(stdin))
	root.SetArgs(append([]string{"--device", "cpu", "--engine", "software", "--quiet"}, args...))

	err := root.Execute()
	return out.String(), err
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEncodeStdinToStdout(t *testing.T) {
	out, err := run(t, testPNG(t, 12, 9), "encode")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(strings.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 12 || cfg.Height != 9 {
		t.Errorf("size = %dx%d, want 12x9", cfg.Width, cfg.Height)
	}
}

func TestEncodeRejectsUnknownInput(t *testing.T) {
	if _, err := run(t, []byte("plain text"), "encode"); err == nil {
		t.Error("expected error for non-image input")
	}
}

func TestEncodeBadQuality(t *testing.T) {
	if _, err := run(t, testPNG(t, 4, 4), "encode", "--quality", "0"); err == nil {
		t.Error("expected error for quality 0")
	}
}

func TestDecodeFileToBMP(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jpg")
	outPath := filepath.Join(dir, "nested", "out.bmp")
	if err := os.WriteFile(in, testJPEG(t, 10, 6), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, nil, "decode", in, "-o", outPath); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatalf("output is not a BMP: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 6 {
		t.Errorf("bounds = %v", b)
	}
}

func TestEncodeGrayWithOps(t *testing.T) {
	out, err := run(t, testPNG(t, 12, 9), "encode", "--op", "grayscale", "--op", "rotate90", "--subsampling", "gray", "--quality", "75")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(strings.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 9 || cfg.Height != 12 {
		t.Errorf("size = %dx%d, want 9x12 after rotation", cfg.Width, cfg.Height)
	}
	if cfg.ColorModel != color.GrayModel {
		t.Errorf("color model = %v, want gray", cfg.ColorModel)
	}
}

func TestDecodeWithOps(t *testing.T) {
	out, err := run(t, testJPEG(t, 10, 6), "decode", "--format", "png", "--op", "rotate90=-1", "--op", "flip=vertical")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	img, err := png.Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 10 {
		t.Errorf("bounds = %v, want 6x10", b)
	}
}

func TestUnknownOp(t *testing.T) {
	for _, cmd := range []string{"encode", "decode"} {
		_, err := run(t, testJPEG(t, 4, 4), cmd, "--op", "sharpen")
		if err == nil || !strings.Contains(err.Error(), "unknown operation") {
			t.Errorf("%s --op sharpen = %v, want unknown operation error", cmd, err)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin []byte
		args  []string
		want  string
	}{
		{"jpeg2000", []byte{0xFF, 0x4F, 0xFF, 0x51, 0, 0}, nil, "JPEG 2000"},
		{"garbage", []byte("not a jpeg"), nil, "codec operation failed"},
		{"empty", nil, nil, "get_image_info"},
		{"bad format", testJPEG(t, 4, 4), []string{"--format", "gif"}, "unknown output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, append([]string{"decode"}, tt.args...)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	if err := os.WriteFile(path, testJPEG(t, 33, 17), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, nil, "info", path)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}

	var reports []imageReport
	if err := yaml.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports", len(reports))
	}
	r := reports[0]
	if r.Width != 33 || r.Height != 17 || r.Format != "jpeg" {
		t.Errorf("report = %+v", r)
	}
	if r.Subsampling != "gray" || len(r.Components) != 1 || r.Process != "baseline" {
		t.Errorf("report = %+v", r)
	}
}

func TestInfoNotJPEG(t *testing.T) {
	out, err := run(t, testPNG(t, 2, 2), "info")
	if err == nil {
		t.Fatal("expected error for PNG input")
	}
	if !strings.Contains(out, "not a JPEG stream") {
		t.Errorf("report should explain the failure: %s", out)
	}
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, nil, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if cfg.Device.Backend != "cpu" || cfg.Codec.Engine != "software" {
		t.Errorf("flags not reflected: %+v", cfg)
	}
	if cfg.Codec.Quality != 90 || cfg.Codec.Subsampling != "420" {
		t.Errorf("codec defaults = %+v", cfg.Codec)
	}
}

func TestConfigFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpujpeg.yaml")
	if err := os.WriteFile(path, []byte("codec:\n  quality: 70\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, nil, "--config", path, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != path {
		t.Errorf("config path = %q, want %q", out, path)
	}
}

func TestDeviceInfo(t *testing.T) {
	out, err := run(t, nil, "device")
	if err != nil {
		t.Fatalf("device failed: %v", err)
	}
	for _, want := range []string{"CPU", "software"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gpujpeg v"+Version) {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"bash completion", []string{"completion", "bash"}, false},
		{"zsh completion", []string{"completion", "zsh"}, false},
		{"fish completion", []string{"completion", "fish"}, false},
		{"powershell completion", []string{"completion", "powershell"}, false},
		{"invalid shell", []string{"completion", "invalid"}, true},
		{"no shell specified", []string{"completion"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, nil, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		path, flag, want string
		wantErr          bool
	}{
		{"", "", "png", false},
		{"out.BMP", "", "bmp", false},
		{"out.png", "bmp", "bmp", false},
		{"out.bmp", "PNG", "png", false},
		{"out.gif", "", "png", false},
		{"", "gif", "", true},
	}

	for _, tt := range tests {
		got, err := outputFormat(tt.path, tt.flag)
		if (err != nil) != tt.wantErr {
			t.Errorf("outputFormat(%q, %q) error = %v", tt.path, tt.flag, err)
			continue
		}
		if got != tt.want {
			t.Errorf("outputFormat(%q, %q) = %q, want %q", tt.path, tt.flag, got, tt.want)
		}
	}
}
