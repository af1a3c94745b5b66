// Package source turns camera frames and decoded images into RGB buffers.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/flavioheleno/polarpics/pixbuf"
)

var (
	// ErrUnsupportedFormat is returned for an unknown Format.
	ErrUnsupportedFormat = errors.New("source: unsupported pixel format")
	// ErrFrameSize is returned when Data does not match the frame geometry.
	ErrFrameSize = errors.New("source: frame data size mismatch")
)

// Format is the pixel layout of a raw frame.
type Format uint8

const (
	// RGB888 is three bytes per pixel, R then G then B.
	RGB888 Format = iota
	// RGB565 is two bytes per pixel, big endian, as sent by camera sensors.
	RGB565
	// Grayscale is one byte per pixel.
	Grayscale
)

// BytesPerPixel returns the size of one pixel, or 0 for an unknown format.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB888:
		return 3
	case RGB565:
		return 2
	case Grayscale:
		return 1
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case RGB888:
		return "RGB888"
	case RGB565:
		return "RGB565"
	case Grayscale:
		return "Grayscale"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Frame is a raw capture.
type Frame struct {
	Width  int
	Height int
	Format Format
	Data   []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.Format)
}

// Decode converts f to a new RGB buffer reserved from a.
func Decode(f Frame, a pixbuf.Allocator) (*pixbuf.RGB, error) {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Format)
	}
	if f.Width < 0 || f.Height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", pixbuf.ErrInvalidDimensions, f.Width, f.Height)
	}
	if len(f.Data) != f.Width*f.Height*bpp {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrFrameSize, len(f.Data), f)
	}
	rgb, err := pixbuf.New[pixbuf.RGB888](f.Width, f.Height, a)
	if err != nil {
		return nil, err
	}
	pix := rgb.Pix()
	d := f.Data
	switch f.Format {
	case RGB888:
		for i := range pix {
			pix[i] = pixbuf.RGB888{R: d[3*i], G: d[3*i+1], B: d[3*i+2]}
		}
	case RGB565:
		for i := range pix {
			pix[i] = unpackRGB565(uint16(d[2*i])<<8 | uint16(d[2*i+1]))
		}
	case Grayscale:
		for i, v := range d {
			pix[i] = pixbuf.RGB888{R: v, G: v, B: v}
		}
	}
	return rgb, nil
}

// unpackRGB565 expands 5 and 6 bit channels to 8 bits by replicating their
// high bits, so full scale maps to 255.
func unpackRGB565(v uint16) pixbuf.RGB888 {
	r := uint8(v >> 11 & 0x1F)
	g := uint8(v >> 5 & 0x3F)
	b := uint8(v & 0x1F)
	return pixbuf.RGB888{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
	}
}

// scaled returns img scaled down with Catmull-Rom so it is at most maxWidth
// pixels wide, keeping the aspect ratio. maxWidth <= 0 disables scaling.
// The result always has its origin at (0, 0).
func scaled(img image.Image, maxWidth int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = max(1, h*maxWidth/w)
		w = maxWidth
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	}
	return dst
}

// FromImage converts img to an RGB buffer, scaling it down first when it is
// wider than maxWidth. Alpha is ignored.
func FromImage(img image.Image, maxWidth int, a pixbuf.Allocator) (*pixbuf.RGB, error) {
	src := scaled(img, maxWidth)
	rgb, err := pixbuf.New[pixbuf.RGB888](src.Rect.Dx(), src.Rect.Dy(), a)
	if err != nil {
		return nil, err
	}
	pix := rgb.Pix()
	for i := range pix {
		p := src.Pix[4*i : 4*i+3]
		pix[i] = pixbuf.RGB888{R: p[0], G: p[1], B: p[2]}
	}
	return rgb, nil
}

// FrameOf renders img into an RGB888 Frame, scaled down as FromImage does.
func FrameOf(img image.Image, maxWidth int) Frame {
	src := scaled(img, maxWidth)
	f := Frame{
		Width:  src.Rect.Dx(),
		Height: src.Rect.Dy(),
		Format: RGB888,
		Data:   make([]byte, 0, 3*src.Rect.Dx()*src.Rect.Dy()),
	}
	for i := 0; i < len(src.Pix); i += 4 {
		f.Data = append(f.Data, src.Pix[i], src.Pix[i+1], src.Pix[i+2])
	}
	return f
}

// Camera produces frames. Frames returned by Capture must be given back
// with Release before the next Capture.
type Camera interface {
	Capture(ctx context.Context) (Frame, error)
	Release(f Frame)
}

// Still is a Camera that serves a fixed list of frames in a loop.
type Still struct {
	frames []Frame
	next   int
	out    int
}

// NewStill returns a camera serving frames in order, starting over after
// the last one.
func NewStill(frames ...Frame) *Still {
	return &Still{frames: frames}
}

// ErrNoFrame is returned by Capture on a Still with no frames.
var ErrNoFrame = errors.New("source: no frame available")

// Capture implements Camera.
func (s *Still) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if len(s.frames) == 0 {
		return Frame{}, ErrNoFrame
	}
	f := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	s.out++
	return f, nil
}

// Release implements Camera.
func (s *Still) Release(Frame) {
	if s.out > 0 {
		s.out--
	}
}

// Outstanding returns the number of captured frames not yet released.
func (s *Still) Outstanding() int {
	return s.out
}
