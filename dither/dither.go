// Package dither reduces 8-bit grayscale buffers to few levels by error
// diffusion.
//
// Cells are visited top to bottom, left to right. The quantization error of
// each cell is spread over its not yet visited neighbours according to the
// selected kernel. The neighbours live in the source buffer, so both
// variants modify the gray buffer they are given:
//
//   - Quantize writes the quantized levels back into the gray buffer.
//   - Bilevel writes one bit per cell into a new bitbuf.Buffer.
//
// Clone the gray buffer first when the original is still needed.
package dither

import (
	"errors"
	"fmt"
	"math"

	"github.com/flavioheleno/polarpics/bitbuf"
	"github.com/flavioheleno/polarpics/pixbuf"
)

// DefaultThreshold is the threshold used by most callers.
const DefaultThreshold float32 = 0.5

var (
	// ErrUnknownMethod is returned for a Method with no kernel.
	ErrUnknownMethod = errors.New("dither: unknown method")
	// ErrThreshold is returned for a threshold outside (0, 1).
	ErrThreshold = errors.New("dither: threshold must be in (0, 1)")
)

func checkThreshold(t float32) error {
	if !(t > 0 && t < 1) {
		return fmt.Errorf("%w: %v", ErrThreshold, t)
	}
	return nil
}

// diffuse adds err*weight to every in-bounds tap of (r, c), clamping to
// [0, 255] and truncating.
func diffuse(pix []uint8, width, height, r, c int, err float32, taps []Tap) {
	if err == 0 {
		return
	}
	for _, t := range taps {
		nr, nc := r+t.DRow, c+t.DCol
		if nr < 0 || nr >= height || nc < 0 || nc >= width {
			continue
		}
		i := nr*width + nc
		pix[i] = uint8(min(max(float32(pix[i])+err*t.Weight, 0), 255))
	}
}

// Quantize dithers gray in place. Each cell becomes
// min(255, 255*floor(v/(threshold*255))) and the difference is diffused.
//
// The method and threshold are validated before gray is touched.
func Quantize(gray *pixbuf.Gray, threshold float32, m Method) error {
	taps, err := lookupTaps(m)
	if err != nil {
		return err
	}
	if err := checkThreshold(threshold); err != nil {
		return err
	}
	w, h := gray.Width(), gray.Height()
	pix := gray.Pix()
	step := threshold * 255
	for r := range h {
		for c := range w {
			i := r*w + c
			v := float32(pix[i])
			level := min(255*float32(math.Floor(float64(v/step))), 255)
			pix[i] = uint8(level)
			diffuse(pix, w, h, r, c, v-level, taps)
		}
	}
	return nil
}

// Bilevel dithers gray into a new bit buffer of the same dimensions. A cell
// is on when its value is above threshold*255. gray receives the diffused
// error.
func Bilevel(gray *pixbuf.Gray, threshold float32, m Method, a pixbuf.Allocator) (*bitbuf.Buffer, error) {
	if _, err := lookupTaps(m); err != nil {
		return nil, err
	}
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	out, err := bitbuf.New(gray.Width(), gray.Height(), a)
	if err != nil {
		return nil, err
	}
	if err := BilevelInto(out, gray, threshold, m); err != nil {
		out.Free()
		return nil, err
	}
	return out, nil
}

// BilevelInto is Bilevel writing into a preallocated dst, which must have
// the dimensions of gray. Every cell of dst is overwritten.
func BilevelInto(dst *bitbuf.Buffer, gray *pixbuf.Gray, threshold float32, m Method) error {
	taps, err := lookupTaps(m)
	if err != nil {
		return err
	}
	if err := checkThreshold(threshold); err != nil {
		return err
	}
	w, h := gray.Width(), gray.Height()
	if dst.Width() != w || dst.Height() != h {
		return fmt.Errorf("%w: %s into %s", pixbuf.ErrDimensionMismatch, gray, dst)
	}
	dst.Clear()
	img := dst.Image()
	pix := gray.Pix()
	cut := threshold * 255
	for r := range h {
		for c := range w {
			v := float32(pix[r*w+c])
			on := v > cut
			qerr := v
			if on {
				qerr -= 255
				img.SetBit(c, r, bitbuf.On)
			}
			diffuse(pix, w, h, r, c, qerr, taps)
		}
	}
	return nil
}
