// Package display blits gray and bi-level buffers onto a periph.io
// display.Drawer.
//
// Panel keeps a copy of the last frame it sent and only forwards the
// bounding rectangle of the pixels that changed, which matters on slow
// SPI and I2C panels.
package display

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/conn/v3/display"

	"github.com/flavioheleno/polarpics/bitbuf"
	"github.com/flavioheleno/polarpics/pixbuf"
)

// ErrHalted is returned by draws after Halt.
var ErrHalted = errors.New("display: halted")

// Panel wraps a display.Drawer with differential updates. It implements
// display.Drawer itself.
type Panel struct {
	d    display.Drawer
	rect image.Rectangle

	// Frame buffers, origin at (0, 0).
	next *image.Gray
	last *image.Gray

	halted bool
}

// New returns a Panel drawing onto d.
func New(d display.Drawer) *Panel {
	b := d.Bounds()
	return &Panel{d: d, rect: image.Rect(0, 0, b.Dx(), b.Dy())}
}

// String implements conn.Resource.
func (p *Panel) String() string {
	return fmt.Sprintf("display.Panel{%s}", p.d)
}

// Halt stops the panel and halts the underlying drawer. Later draws fail
// with ErrHalted.
func (p *Panel) Halt() error {
	p.halted = true
	return p.d.Halt()
}

// ColorModel returns color.GrayModel; frames are kept as 8-bit gray.
func (p *Panel) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds returns the drawer size with its origin moved to (0, 0).
func (p *Panel) Bounds() image.Rectangle {
	return p.rect
}

// Draw implements display.Drawer. Only the changed part of the frame is
// sent to the underlying drawer; the first draw sends the whole frame.
func (p *Panel) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if p.halted {
		return ErrHalted
	}
	dst = dst.Intersect(p.rect)
	if dst.Empty() {
		return nil
	}

	first := p.next == nil
	if first {
		p.next = image.NewGray(p.rect)
		p.last = image.NewGray(p.rect)
	}
	draw.Draw(p.next, dst, src, sp, draw.Src)

	changed := p.rect
	if !first {
		changed = p.diff()
		if changed.Empty() {
			return nil
		}
	}

	if err := p.d.Draw(changed.Add(p.d.Bounds().Min), p.next, changed.Min); err != nil {
		// Roll back so the next draw resends the region.
		if first {
			p.next, p.last = nil, nil
		} else {
			copy(p.next.Pix, p.last.Pix)
		}
		return fmt.Errorf("display: failed to draw %v: %w", changed, err)
	}
	copy(p.last.Pix, p.next.Pix)
	return nil
}

// diff returns the bounding rectangle of the pixels that differ between
// next and last, or an empty rectangle.
func (p *Panel) diff() image.Rectangle {
	width, height := p.rect.Dx(), p.rect.Dy()
	minRow, maxRow := height, -1
	minCol, maxCol := width, -1

	for y := range height {
		start := y * p.next.Stride
		a := p.last.Pix[start : start+width]
		b := p.next.Pix[start : start+width]
		if bytes.Equal(a, b) {
			continue
		}
		minRow = min(minRow, y)
		maxRow = max(maxRow, y)
		for x := range width {
			if a[x] != b[x] {
				minCol = min(minCol, x)
				maxCol = max(maxCol, x)
			}
		}
	}
	if maxRow < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minCol, minRow, maxCol+1, maxRow+1)
}

// DrawGray draws gray at the origin, clipped to the panel.
func (p *Panel) DrawGray(gray *pixbuf.Gray) error {
	img := &image.Gray{
		Pix:    gray.Pix(),
		Stride: gray.Width(),
		Rect:   image.Rect(0, 0, gray.Width(), gray.Height()),
	}
	return p.Draw(img.Rect, img, image.Point{})
}

// DrawBits draws a bi-level buffer at the origin, on cells white and off
// cells black.
func (p *Panel) DrawBits(bits *bitbuf.Buffer) error {
	img := bits.Image()
	return p.Draw(img.Bounds(), img, image.Point{})
}

// EncodeRGB565 expands gray to big-endian RGB565, two bytes per pixel, the
// layout TFT controllers expect on the wire.
func EncodeRGB565(gray *pixbuf.Gray) []byte {
	out := make([]byte, 2*gray.Len())
	for i, v := range gray.Pix() {
		w := uint16(v>>3)<<11 | uint16(v>>2)<<5 | uint16(v>>3)
		out[2*i] = byte(w >> 8)
		out[2*i+1] = byte(w)
	}
	return out
}

var _ display.Drawer = &Panel{}
