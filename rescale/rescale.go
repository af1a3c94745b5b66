// Package rescale resizes pixel buffers by nearest neighbour or box average.
package rescale

import (
	"errors"
	"fmt"
	"math"

	"github.com/flavioheleno/polarpics/pixbuf"
)

// ErrInvalidRatio is returned for ratios that are not strictly positive.
var ErrInvalidRatio = errors.New("rescale: invalid ratio")

// Size returns the output dimensions round(width*ratio) x round(height*ratio).
func Size(width, height int, ratio float64) (int, int, error) {
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidRatio, ratio)
	}
	return int(math.Round(float64(width) * ratio)), int(math.Round(float64(height) * ratio)), nil
}

// SourceIndex maps an output coordinate back to floor(out/ratio), clamped
// to [0, limit).
func SourceIndex(out int, ratio float64, limit int) int {
	i := int(math.Floor(float64(out) / ratio))
	if i >= limit {
		i = limit - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Nearest resizes buf by ratio using nearest-neighbour sampling. No
// interpolation is done.
func Nearest[T pixbuf.Pixel](buf *pixbuf.Buffer[T], ratio float64, a pixbuf.Allocator) (*pixbuf.Buffer[T], error) {
	w, h, err := Size(buf.Width(), buf.Height(), ratio)
	if err != nil {
		return nil, err
	}
	out, err := pixbuf.New[T](w, h, a)
	if err != nil {
		return nil, err
	}
	src := buf.Pix()
	for r := range h {
		sr := SourceIndex(r, ratio, buf.Height())
		row := out.Row(r)
		for c := range row {
			row[c] = src[sr*buf.Width()+SourceIndex(c, ratio, buf.Width())]
		}
	}
	return out, nil
}

// boxSize validates a num/denom ratio and returns the output dimensions
// width*num/denom x height*num/denom.
func boxSize(width, height, num, denom int) (int, int, error) {
	if num <= 0 || denom <= 0 {
		return 0, 0, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, num, denom)
	}
	return width * num / denom, height * num / denom, nil
}

// boxWindow calls fn with the linear source index of every sample in the
// denom x denom window of output cell (r, c).
func boxWindow(r, c, num, denom, width, height int, fn func(i int)) {
	for j := range denom {
		for i := range denom {
			sr := min((r*denom+i)/num, height-1)
			sc := min((c*denom+j)/num, width-1)
			fn(sr*width + sc)
		}
	}
}

// Box resizes gray by num/denom, averaging a denom x denom window of source
// samples for every output cell. The mean is rounded toward zero.
func Box(gray *pixbuf.Gray, num, denom int, a pixbuf.Allocator) (*pixbuf.Gray, error) {
	w, h, err := boxSize(gray.Width(), gray.Height(), num, denom)
	if err != nil {
		return nil, err
	}
	out, err := pixbuf.New[uint8](w, h, a)
	if err != nil {
		return nil, err
	}
	src := gray.Pix()
	n := denom * denom
	for r := range h {
		row := out.Row(r)
		for c := range row {
			sum := 0
			boxWindow(r, c, num, denom, gray.Width(), gray.Height(), func(i int) {
				sum += int(src[i])
			})
			row[c] = uint8(sum / n)
		}
	}
	return out, nil
}

// BoxRGB is Box applied to each channel of an RGB buffer.
func BoxRGB(rgb *pixbuf.RGB, num, denom int, a pixbuf.Allocator) (*pixbuf.RGB, error) {
	w, h, err := boxSize(rgb.Width(), rgb.Height(), num, denom)
	if err != nil {
		return nil, err
	}
	out, err := pixbuf.New[pixbuf.RGB888](w, h, a)
	if err != nil {
		return nil, err
	}
	src := rgb.Pix()
	n := denom * denom
	for r := range h {
		row := out.Row(r)
		for c := range row {
			var sr, sg, sb int
			boxWindow(r, c, num, denom, rgb.Width(), rgb.Height(), func(i int) {
				sr += int(src[i].R)
				sg += int(src[i].G)
				sb += int(src[i].B)
			})
			row[c] = pixbuf.RGB888{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n)}
		}
	}
	return out, nil
}
