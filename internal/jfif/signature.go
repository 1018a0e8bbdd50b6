package jfif

import "bytes"

// Format is an image container recognised by its leading signature
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatJPEG2000
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatJPEG2000:
		return "jpeg2000"
	default:
		return "unknown"
	}
}

var (
	sigJPEG     = []byte{0xFF, 0xD8, 0xFF}
	sigJP2      = []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}
	sigJ2KCodes = []byte{0xFF, 0x4F, 0xFF, 0x51}
)

// Detect identifies the container from the leading bytes of data.
// See https://en.wikipedia.org/wiki/List_of_file_signatures
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, sigJPEG):
		return FormatJPEG
	case bytes.HasPrefix(data, sigJP2), bytes.HasPrefix(data, sigJ2KCodes):
		return FormatJPEG2000
	default:
		return FormatUnknown
	}
}

// IsJPEG reports whether data starts with a JPEG (JFIF/Exif/raw) signature
func IsJPEG(data []byte) bool {
	return Detect(data) == FormatJPEG
}
