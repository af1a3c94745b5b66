package display

import (
	"image/color"

	"github.com/flavioheleno/polarpics/pixbuf"
)

// Gray4 is a 16 level gray, as driven by 4-bit OLED controllers. Only the
// low 4 bits of Y are used.
type Gray4 struct {
	Y uint8
}

// RGBA implements color.Color.
func (c Gray4) RGBA() (r, g, b, a uint32) {
	y := uint32(c.Y&0x0F) * 0x1111
	return y, y, y, 0xFFFF
}

// Gray4Model converts colors to Gray4 by keeping the top 4 bits of their
// 8-bit gray value.
var Gray4Model = color.ModelFunc(func(c color.Color) color.Color {
	if g, ok := c.(Gray4); ok {
		return g
	}
	return Gray4{Y: color.GrayModel.Convert(c).(color.Gray).Y >> 4}
})

// EncodeGray4 quantizes gray through Gray4Model and packs it two pixels per
// byte, left pixel in the high nibble. Rows of odd width are padded with a zero nibble so every row
// starts on a byte boundary, which is what 4-bit controllers expect.
func EncodeGray4(gray *pixbuf.Gray) []byte {
	stride := (gray.Width() + 1) / 2
	out := make([]byte, stride*gray.Height())
	for r := range gray.Height() {
		dst := out[r*stride : (r+1)*stride]
		for c, v := range gray.Row(r) {
			y := Gray4Model.Convert(color.Gray{Y: v}).(Gray4).Y
			dst[c/2] |= y << (4 * (1 - c&1))
		}
	}
	return out
}
