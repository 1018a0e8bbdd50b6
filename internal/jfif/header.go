package jfif

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Marker codes used while walking the header
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerTEM  = 0x01
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

var (
	// ErrNotJPEG is returned when the stream does not start with SOI
	ErrNotJPEG = errors.New("not a JPEG stream: missing SOI marker")

	// ErrTruncated is returned when the header ends before a frame header
	ErrTruncated = errors.New("truncated JPEG header")

	// ErrNoFrame is returned when scan data or EOI is reached before any SOF
	ErrNoFrame = errors.New("no frame header before scan data")
)

// Component describes one frame component and its sampling factors
type Component struct {
	ID uint8
	H  uint8 // horizontal sampling factor
	V  uint8 // vertical sampling factor
	Tq uint8 // quantization table selector
}

// Header is the metadata carried by a JPEG frame header (SOFn)
type Header struct {
	Marker     byte
	Precision  int
	Width      int
	Height     int
	Components []Component
}

// Progressive reports whether the frame uses progressive DCT
func (h *Header) Progressive() bool {
	switch h.Marker {
	case 0xC2, 0xC6, 0xCA, 0xCE:
		return true
	}
	return false
}

// Process names the coding process selected by the SOF marker
func (h *Header) Process() string {
	switch h.Marker {
	case 0xC0:
		return "baseline"
	case 0xC1, 0xC5, 0xC9, 0xCD:
		return "extended"
	case 0xC2, 0xC6, 0xCA, 0xCE:
		return "progressive"
	case 0xC3, 0xC7, 0xCB, 0xCF:
		return "lossless"
	default:
		return "unknown"
	}
}

// Arithmetic reports whether the frame uses arithmetic entropy coding
func (h *Header) Arithmetic() bool {
	return h.Marker >= 0xC9
}

// Parse walks the marker segments of data up to the first frame header and
// returns it. No entropy-coded data is touched.
func Parse(data []byte) (*Header, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, ErrNotJPEG
	}

	pos := 2
	for {
		if pos >= len(data) {
			return nil, ErrTruncated
		}
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("expected marker at offset %d, found 0x%02x", pos, data[pos])
		}

		// Any number of 0xFF fill bytes may precede a marker code
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			return nil, ErrTruncated
		}

		marker := data[pos]
		pos++

		switch {
		case marker == markerTEM, marker >= markerRST0 && marker <= markerRST7:
			continue
		case marker == markerSOI:
			return nil, fmt.Errorf("unexpected SOI marker at offset %d", pos-2)
		case marker == markerEOI, marker == markerSOS:
			return nil, ErrNoFrame
		}

		if pos+2 > len(data) {
			return nil, ErrTruncated
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		if length < 2 {
			return nil, fmt.Errorf("invalid segment length %d for marker 0x%02x", length, marker)
		}
		if pos+length > len(data) {
			return nil, ErrTruncated
		}

		if isSOF(marker) {
			return parseFrame(marker, data[pos+2:pos+length])
		}

		pos += length
	}
}

// isSOF reports whether marker is a start-of-frame marker. DHT, JPG and DAC
// share the 0xCx range but are not frame headers.
func isSOF(marker byte) bool {
	if marker < 0xC0 || marker > 0xCF {
		return false
	}
	switch marker {
	case 0xC4, 0xC8, 0xCC:
		return false
	}
	return true
}

func parseFrame(marker byte, seg []byte) (*Header, error) {
	if len(seg) < 6 {
		return nil, fmt.Errorf("frame header too short: %d bytes", len(seg))
	}

	h := &Header{
		Marker:    marker,
		Precision: int(seg[0]),
		Height:    int(binary.BigEndian.Uint16(seg[1:])),
		Width:     int(binary.BigEndian.Uint16(seg[3:])),
	}

	n := int(seg[5])
	if n == 0 || n > 4 {
		return nil, fmt.Errorf("unsupported component count: %d", n)
	}
	if len(seg) < 6+3*n {
		return nil, fmt.Errorf("frame header declares %d components but holds %d bytes", n, len(seg))
	}

	if h.Width == 0 {
		return nil, fmt.Errorf("invalid frame width 0")
	}
	if h.Height == 0 {
		// Height deferred to a DNL marker after the first scan
		return nil, fmt.Errorf("frame height defined by DNL is not supported")
	}

	h.Components = make([]Component, n)
	for i := range h.Components {
		c := seg[6+3*i:]
		h.Components[i] = Component{
			ID: c[0],
			H:  c[1] >> 4,
			V:  c[1] & 0x0F,
			Tq: c[2],
		}
		if h.Components[i].H == 0 || h.Components[i].V == 0 {
			return nil, fmt.Errorf("component %d has zero sampling factor", c[0])
		}
	}

	return h, nil
}
