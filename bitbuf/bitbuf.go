// Package bitbuf provides a packed 1-bit-per-pixel buffer for thermal
// printers and bi-level displays.
//
// Cells are packed continuously across rows, most significant bit first.
// Cell (r, c) has id r*Width+c and is stored in byte id/8 at bit 7-id%8:
//
//	Width 5, Height 2 (10 cells, 2 bytes)
//	Cells:  (0,0)..(0,4) (1,0)..(1,2) | (1,3) (1,4)
//	Byte 0:  b7 ........ b0           | Byte 1: b7 b6, b5..b0 unused
//
// Rows are not padded to a byte boundary; a row can start in the middle of
// a byte.
package bitbuf

import (
	"fmt"
	"math"

	"github.com/flavioheleno/polarpics/pixbuf"
)

// Buffer is a packed bi-level buffer that exclusively owns its bytes.
type Buffer struct {
	data    []byte
	width   int
	height  int
	alloc   pixbuf.Allocator
	release func()
}

// ByteLen returns the number of bytes needed to pack width*height cells.
func ByteLen(width, height int) int {
	return (width*height + 7) / 8
}

// checkSize rejects negative dimensions and cell counts that overflow int.
func checkSize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: %dx%d", pixbuf.ErrInvalidDimensions, width, height)
	}
	if height != 0 && width > (math.MaxInt-7)/height {
		return fmt.Errorf("%w: %dx%d overflows", pixbuf.ErrAllocation, width, height)
	}
	return nil
}

// New allocates a width x height buffer with every cell off.
func New(width, height int, a pixbuf.Allocator) (*Buffer, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if a == nil {
		a = pixbuf.Heap
	}
	n := ByteLen(width, height)
	release, err := a.Reserve(n)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		data:    make([]byte, n),
		width:   width,
		height:  height,
		alloc:   a,
		release: release,
	}, nil
}

// NewFilled allocates a width x height buffer with every cell set to on.
func NewFilled(width, height int, on bool, a pixbuf.Allocator) (*Buffer, error) {
	b, err := New(width, height, a)
	if err != nil {
		return nil, err
	}
	if on {
		for i := range b.data {
			b.data[i] = 0xFF
		}
		b.clearPadding()
	}
	return b, nil
}

// FromBytes adopts data, which must be exactly ByteLen(width, height) bytes.
func FromBytes(width, height int, data []byte, a pixbuf.Allocator) (*Buffer, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if len(data) != ByteLen(width, height) {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", pixbuf.ErrDimensionMismatch, len(data), width, height)
	}
	if a == nil {
		a = pixbuf.Heap
	}
	release, err := a.Reserve(len(data))
	if err != nil {
		return nil, err
	}
	return &Buffer{data: data, width: width, height: height, alloc: a, release: release}, nil
}

// Width returns the number of columns.
func (b *Buffer) Width() int {
	return b.width
}

// Height returns the number of rows.
func (b *Buffer) Height() int {
	return b.height
}

// Len returns the number of logical cells, not bytes.
func (b *Buffer) Len() int {
	return b.width * b.height
}

// ByteLen returns the number of packed bytes.
func (b *Buffer) ByteLen() int {
	return len(b.data)
}

// Bytes returns the packed bytes. They stay owned by b.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// SameSize reports whether b and o have identical dimensions.
func (b *Buffer) SameSize(o *Buffer) bool {
	return b.width == o.width && b.height == o.height
}

// bitOffset returns the byte index and mask of cell (r, c).
func (b *Buffer) bitOffset(r, c int) (index int, mask byte) {
	id := r*b.width + c
	return id / 8, 1 << (7 - id%8)
}

func (b *Buffer) inBounds(r, c int) bool {
	return r >= 0 && r < b.height && c >= 0 && c < b.width
}

// Get reports whether cell (r, c) is on.
func (b *Buffer) Get(r, c int) (bool, error) {
	if !b.inBounds(r, c) {
		return false, fmt.Errorf("%w: (%d,%d) in %dx%d", pixbuf.ErrIndexOutOfRange, r, c, b.width, b.height)
	}
	index, mask := b.bitOffset(r, c)
	return b.data[index]&mask != 0, nil
}

// Set turns cell (r, c) on or off without touching the other bits of its byte.
func (b *Buffer) Set(r, c int, on bool) error {
	if !b.inBounds(r, c) {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", pixbuf.ErrIndexOutOfRange, r, c, b.width, b.height)
	}
	b.set(r, c, on)
	return nil
}

// set is Set without the bounds check.
func (b *Buffer) set(r, c int, on bool) {
	index, mask := b.bitOffset(r, c)
	if on {
		b.data[index] |= mask
	} else {
		b.data[index] &^= mask
	}
}

// Clear turns every cell off.
func (b *Buffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Invert flips every cell. Padding bits in the last byte stay zero.
func (b *Buffer) Invert() {
	for i := range b.data {
		b.data[i] = ^b.data[i]
	}
	b.clearPadding()
}

// clearPadding zeroes the unused low bits of the last byte.
func (b *Buffer) clearPadding() {
	if pad := len(b.data)*8 - b.Len(); pad > 0 {
		b.data[len(b.data)-1] &^= byte(1)<<pad - 1
	}
}

// Equal compares dimensions first, then every packed byte.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if !b.SameSize(o) {
		return false
	}
	for i, v := range b.data {
		if o.data[i] != v {
			return false
		}
	}
	return true
}

// Clone deep-copies b into a new reservation from the same allocator.
func (b *Buffer) Clone() (*Buffer, error) {
	a := b.alloc
	if a == nil {
		a = pixbuf.Heap
	}
	c, err := New(b.width, b.height, a)
	if err != nil {
		return nil, err
	}
	copy(c.data, b.data)
	return c, nil
}

// Move transfers ownership of the bytes to a new Buffer in O(1). b is left
// empty and may still be freed safely.
func (b *Buffer) Move() *Buffer {
	m := &Buffer{
		data:    b.data,
		width:   b.width,
		height:  b.height,
		alloc:   b.alloc,
		release: b.release,
	}
	b.data = nil
	b.width, b.height = 0, 0
	b.release = nil
	return m
}

// Free releases the reservation and empties b. Calling Free more than once
// is safe.
func (b *Buffer) Free() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	b.data = nil
	b.width, b.height = 0, 0
}

func (b *Buffer) String() string {
	return fmt.Sprintf("bitbuf.Buffer{%dx%d}", b.width, b.height)
}
