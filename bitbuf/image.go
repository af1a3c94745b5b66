package bitbuf

import (
	"image"
	"image/color"
)

// Bit is a bi-level color. true is on (white, full intensity).
type Bit bool

const (
	Off Bit = false
	On  Bit = true
)

// RGBA implements color.Color.
func (b Bit) RGBA() (r, g, bl, a uint32) {
	if b {
		return 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF
	}
	return 0, 0, 0, 0xFFFF
}

func (b Bit) String() string {
	if b {
		return "On"
	}
	return "Off"
}

// toBit converts any color.Color to Bit by thresholding luminance at half
// scale.
func toBit(c color.Color) color.Color {
	if b, ok := c.(Bit); ok {
		return b
	}
	r, g, b, _ := c.RGBA()
	y := (299*r + 587*g + 114*b + 500) / 1000
	return Bit(y >= 0x8000)
}

// BitModel converts colors to Bit.
var BitModel = color.ModelFunc(toBit)

// Image is an image.Image and draw.Image view of a Buffer. It shares the
// buffer's bytes, so drawing into it writes the buffer.
type Image struct {
	buf  *Buffer
	Rect image.Rectangle
}

// Image returns a view of b with bounds (0, 0, Width, Height).
func (b *Buffer) Image() *Image {
	return &Image{buf: b, Rect: image.Rect(0, 0, b.width, b.height)}
}

// ColorModel returns BitModel.
func (p *Image) ColorModel() color.Model {
	return BitModel
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At implements image.Image. Out of bounds pixels are Off.
func (p *Image) At(x, y int) color.Color {
	return p.BitAt(x, y)
}

// BitAt returns the Bit at (x, y).
func (p *Image) BitAt(x, y int) Bit {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return Off
	}
	on, _ := p.buf.Get(y-p.Rect.Min.Y, x-p.Rect.Min.X)
	return Bit(on)
}

// Set implements draw.Image. Out of bounds writes are ignored.
func (p *Image) Set(x, y int, c color.Color) {
	p.SetBit(x, y, BitModel.Convert(c).(Bit))
}

// SetBit sets the Bit at (x, y) without color conversion.
func (p *Image) SetBit(x, y int, b Bit) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.buf.set(y-p.Rect.Min.Y, x-p.Rect.Min.X, bool(b))
}
