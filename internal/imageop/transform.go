package imageop

import (
	"github.com/xupit3r/gpujpeg/internal/pixel"
)

// Rec. 709 luma weights
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

func clone(src *pixel.Array) *pixel.Array {
	out := &pixel.Array{
		Shape: append([]int(nil), src.Shape...),
		DType: src.DType,
		Data:  make([]byte, len(src.Data)),
	}
	copy(out.Data, src.Data)
	return out
}

func identity(src *pixel.Array, height, width int) *pixel.Array {
	return clone(src)
}

// rotate turns the image a quarter counterclockwise: (H, W) becomes (W, H)
func rotate(src *pixel.Array, height, width int) *pixel.Array {
	out := pixel.NewRGB(width, height)
	for i := 0; i < width; i++ {
		for j := 0; j < height; j++ {
			s := (j*width + (width - 1 - i)) * pixel.Channels
			d := (i*height + j) * pixel.Channels
			copy(out.Data[d:d+pixel.Channels], src.Data[s:s+pixel.Channels])
		}
	}
	return out
}

func flip(src *pixel.Array, height, width int, horizontal, vertical bool) *pixel.Array {
	out := pixel.NewRGB(height, width)
	for y := 0; y < height; y++ {
		sy := y
		if vertical {
			sy = height - 1 - y
		}
		for x := 0; x < width; x++ {
			sx := x
			if horizontal {
				sx = width - 1 - x
			}
			s := (sy*width + sx) * pixel.Channels
			d := (y*width + x) * pixel.Channels
			copy(out.Data[d:d+pixel.Channels], src.Data[s:s+pixel.Channels])
		}
	}
	return out
}

func bgr2rgb(src *pixel.Array, height, width int) *pixel.Array {
	out := clone(src)
	for i := 0; i < len(out.Data); i += pixel.Channels {
		out.Data[i], out.Data[i+2] = out.Data[i+2], out.Data[i]
	}
	return out
}

// roll moves pixel (y, x) to (y+dy, x+dx), wrapping at the edges
func roll(src *pixel.Array, height, width, dy, dx int) *pixel.Array {
	dy = ((dy % height) + height) % height
	dx = ((dx % width) + width) % width

	out := pixel.NewRGB(height, width)
	for y := 0; y < height; y++ {
		ty := (y + dy) % height
		for x := 0; x < width; x++ {
			tx := (x + dx) % width
			s := (y*width + x) * pixel.Channels
			d := (ty*width + tx) * pixel.Channels
			copy(out.Data[d:d+pixel.Channels], src.Data[s:s+pixel.Channels])
		}
	}
	return out
}

func grayscale(src *pixel.Array, height, width int) *pixel.Array {
	out := pixel.NewRGB(height, width)
	for i := 0; i < len(src.Data); i += pixel.Channels {
		l := lumaR*float64(src.Data[i]) + lumaG*float64(src.Data[i+1]) + lumaB*float64(src.Data[i+2])
		if l > 255 {
			l = 255
		}
		g := uint8(l)
		out.Data[i], out.Data[i+1], out.Data[i+2] = g, g, g
	}
	return out
}

// equalize spreads each channel's cumulative histogram over 0..255
func equalize(src *pixel.Array, height, width int) *pixel.Array {
	out := pixel.NewRGB(height, width)
	total := height * width

	for c := 0; c < pixel.Channels; c++ {
		var hist [256]int
		for i := c; i < len(src.Data); i += pixel.Channels {
			hist[src.Data[i]]++
		}

		var lut [256]uint8
		cdf := 0
		for v := range hist {
			cdf += hist[v]
			lut[v] = uint8(255 * cdf / total)
		}

		for i := c; i < len(src.Data); i += pixel.Channels {
			out.Data[i] = lut[src.Data[i]]
		}
	}
	return out
}
