package pixel

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// RGB is an image.Image over interleaved 8-bit RGB samples
type RGB struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewRGBImage wraps pix as a width x height image with the given row stride
func NewRGBImage(pix []byte, width, height, stride int) *RGB {
	return &RGB{
		Pix:    pix,
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
	}
}

func (p *RGB) ColorModel() color.Model { return color.RGBAModel }
func (p *RGB) Bounds() image.Rectangle { return p.Rect }

func (p *RGB) offset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*Channels
}

func (p *RGB) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.offset(x, y)
	return color.RGBA{p.Pix[i], p.Pix[i+1], p.Pix[i+2], 0xFF}
}

func (p *RGB) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.offset(x, y)
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	p.Pix[i] = rgba.R
	p.Pix[i+1] = rgba.G
	p.Pix[i+2] = rgba.B
}

// RGBA copies the image into a standard *image.RGBA
func (p *RGB) RGBA() *image.RGBA {
	b := p.Rect
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := p.Pix[y*p.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[4*x] = src[3*x]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x+2]
			dst[4*x+3] = 0xFF
		}
	}
	return out
}

// Image returns a view of a (H, W, 3) uint8 array as an image
func (a *Array) Image() (*RGB, error) {
	h, w, stride, err := a.RGBShape()
	if err != nil {
		return nil, err
	}
	return NewRGBImage(a.Data, w, h, stride), nil
}

// FromImage converts any image into a (H, W, 3) uint8 array. Alpha is
// dropped after compositing onto black.
func FromImage(img image.Image) *Array {
	b := img.Bounds()
	arr := NewRGB(b.Dy(), b.Dx())
	dst := NewRGBImage(arr.Data, b.Dx(), b.Dy(), b.Dx()*Channels)
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Over)
	return arr
}

// DrawInto renders img into an interleaved RGB region of pix with the given stride
func DrawInto(pix []byte, stride int, img image.Image) {
	b := img.Bounds()
	dst := NewRGBImage(pix, b.Dx(), b.Dy(), stride)
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
}
