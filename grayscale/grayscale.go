// Package grayscale converts RGB888 buffers to 8-bit luma.
//
// The weights are 0.299 red, 0.587 green and 0.144 blue. The blue weight is
// not the usual 0.114; existing captures were produced with 0.144 and output
// must match them pixel for pixel.
package grayscale

import (
	"image/color"
	"math"

	"github.com/flavioheleno/polarpics/pixbuf"
	"github.com/flavioheleno/polarpics/rescale"
)

const (
	weightR = 0.299
	weightG = 0.587
	weightB = 0.144
)

// RGBToGray returns clamp(0, 255, round(0.299r + 0.587g + 0.144b)).
func RGBToGray(r, g, b uint8) uint8 {
	y := math.Round(weightR*float64(r) + weightG*float64(g) + weightB*float64(b))
	if y > 255 {
		return 255
	}
	if y < 0 {
		return 0
	}
	return uint8(y)
}

// Convert returns a new gray buffer of the same dimensions as rgb. rgb is
// not modified.
func Convert(rgb *pixbuf.RGB, a pixbuf.Allocator) (*pixbuf.Gray, error) {
	gray, err := pixbuf.New[uint8](rgb.Width(), rgb.Height(), a)
	if err != nil {
		return nil, err
	}
	dst := gray.Pix()
	for i, p := range rgb.Pix() {
		dst[i] = RGBToGray(p.R, p.G, p.B)
	}
	return gray, nil
}

// ConvertRescaled is rescale.Nearest followed by Convert, without
// allocating the intermediate RGB buffer.
func ConvertRescaled(rgb *pixbuf.RGB, ratio float64, a pixbuf.Allocator) (*pixbuf.Gray, error) {
	w, h, err := rescale.Size(rgb.Width(), rgb.Height(), ratio)
	if err != nil {
		return nil, err
	}
	gray, err := pixbuf.New[uint8](w, h, a)
	if err != nil {
		return nil, err
	}
	src := rgb.Pix()
	for r := range h {
		sr := rescale.SourceIndex(r, ratio, rgb.Height())
		row := gray.Row(r)
		for c := range row {
			p := src[sr*rgb.Width()+rescale.SourceIndex(c, ratio, rgb.Width())]
			row[c] = RGBToGray(p.R, p.G, p.B)
		}
	}
	return gray, nil
}

// Model converts any color to color.Gray with the same weights as
// RGBToGray. Alpha is ignored.
var Model color.Model = color.ModelFunc(toGray)

func toGray(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.Gray{Y: RGBToGray(uint8(r>>8), uint8(g>>8), uint8(b>>8))}
}
