package dither

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	mwdither "github.com/makeworld-the-better-one/dither/v2"

	"github.com/flavioheleno/polarpics/bitbuf"
	"github.com/flavioheleno/polarpics/pixbuf"
)

// ErrBayerSize is returned by Ordered for a matrix size that is not a power
// of two between 2 and 16.
var ErrBayerSize = errors.New("dither: bayer size must be 2, 4, 8 or 16")

// OrderedStrength is the Bayer mapper strength used by Ordered.
const OrderedStrength float32 = 1.0

// Ordered dithers gray with a size x size Bayer matrix into a new bit
// buffer. Unlike error diffusion, gray is not modified and every cell is
// computed independently.
func Ordered(gray *pixbuf.Gray, size int, a pixbuf.Allocator) (*bitbuf.Buffer, error) {
	switch size {
	case 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("%w: %d", ErrBayerSize, size)
	}
	out, err := bitbuf.New(gray.Width(), gray.Height(), a)
	if err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return out, nil
	}

	d := mwdither.NewDitherer([]color.Color{color.Black, color.White})
	d.Mapper = mwdither.Bayer(uint(size), uint(size), OrderedStrength)
	p := d.DitherPaletted(grayImage(gray))

	img := out.Image()
	for r := range gray.Height() {
		row := p.Pix[r*p.Stride : r*p.Stride+gray.Width()]
		for c, idx := range row {
			if idx == 1 {
				img.SetBit(c, r, bitbuf.On)
			}
		}
	}
	return out, nil
}

// grayImage returns an image.Gray sharing the pixels of gray.
func grayImage(gray *pixbuf.Gray) *image.Gray {
	return &image.Gray{
		Pix:    gray.Pix(),
		Stride: gray.Width(),
		Rect:   image.Rect(0, 0, gray.Width(), gray.Height()),
	}
}
