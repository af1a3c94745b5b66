package pixbuf

import (
	"fmt"
	"math"
	"unsafe"
)

// RGB888 is an interleaved 3-channel pixel, 8 bits per channel.
type RGB888 struct {
	R, G, B uint8
}

// Pixel is the set of element types a Buffer can hold.
type Pixel interface {
	uint8 | RGB888
}

// Buffer is a row-major 2D pixel buffer that exclusively owns its pixels.
//
// The zero value is an empty 0x0 buffer.
type Buffer[T Pixel] struct {
	pix     []T
	width   int
	height  int
	alloc   Allocator
	release func()
}

// Gray is an 8-bit grayscale buffer.
type Gray = Buffer[uint8]

// RGB is an interleaved RGB888 buffer.
type RGB = Buffer[RGB888]

// New allocates a zero-filled width x height buffer through a.
// A nil a uses Heap.
func New[T Pixel](width, height int, a Allocator) (*Buffer[T], error) {
	if a == nil {
		a = Heap
	}
	release, err := reserve[T](width, height, a)
	if err != nil {
		return nil, err
	}
	return &Buffer[T]{
		pix:     make([]T, width*height),
		width:   width,
		height:  height,
		alloc:   a,
		release: release,
	}, nil
}

// NewFilled allocates a width x height buffer with every element set to fill.
func NewFilled[T Pixel](width, height int, fill T, a Allocator) (*Buffer[T], error) {
	b, err := New[T](width, height, a)
	if err != nil {
		return nil, err
	}
	b.Fill(fill)
	return b, nil
}

// FromSlice adopts pix as the backing storage of a width x height buffer.
// The caller must not use pix afterwards.
func FromSlice[T Pixel](width, height int, pix []T, a Allocator) (*Buffer[T], error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d elements for %dx%d", ErrDimensionMismatch, len(pix), width, height)
	}
	if a == nil {
		a = Heap
	}
	release, err := reserve[T](width, height, a)
	if err != nil {
		return nil, err
	}
	return &Buffer[T]{pix: pix, width: width, height: height, alloc: a, release: release}, nil
}

// reserve validates the dimensions and reserves their byte size from a.
func reserve[T Pixel](width, height int, a Allocator) (func(), error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	elemSize := ElemSize[T]()
	if height != 0 && width > math.MaxInt/height/elemSize {
		return nil, fmt.Errorf("%w: %dx%d overflows", ErrAllocation, width, height)
	}
	return a.Reserve(width * height * elemSize)
}

// ElemSize returns the size in bytes of one element of T.
func ElemSize[T Pixel]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Width returns the number of columns.
func (b *Buffer[T]) Width() int {
	return b.width
}

// Height returns the number of rows.
func (b *Buffer[T]) Height() int {
	return b.height
}

// Len returns Width*Height.
func (b *Buffer[T]) Len() int {
	return len(b.pix)
}

// Pix returns the row-major backing slice. It stays owned by b.
func (b *Buffer[T]) Pix() []T {
	return b.pix
}

// Allocator returns the allocator b was reserved from.
func (b *Buffer[T]) Allocator() Allocator {
	if b.alloc == nil {
		return Heap
	}
	return b.alloc
}

// SameSize reports whether b and o have identical dimensions.
func (b *Buffer[T]) SameSize(o *Buffer[T]) bool {
	return b.width == o.width && b.height == o.height
}

// At returns the element at row r, column c.
func (b *Buffer[T]) At(r, c int) (T, error) {
	if r < 0 || r >= b.height || c < 0 || c >= b.width {
		var zero T
		return zero, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, r, c, b.width, b.height)
	}
	return b.pix[r*b.width+c], nil
}

// Set sets the element at row r, column c.
func (b *Buffer[T]) Set(r, c int, v T) error {
	if r < 0 || r >= b.height || c < 0 || c >= b.width {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, r, c, b.width, b.height)
	}
	b.pix[r*b.width+c] = v
	return nil
}

// Index returns the element at linear index i.
func (b *Buffer[T]) Index(i int) (T, error) {
	if i < 0 || i >= len(b.pix) {
		var zero T
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(b.pix))
	}
	return b.pix[i], nil
}

// SetIndex sets the element at linear index i.
func (b *Buffer[T]) SetIndex(i int, v T) error {
	if i < 0 || i >= len(b.pix) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(b.pix))
	}
	b.pix[i] = v
	return nil
}

// Row returns a mutable view of row r, or nil if r is out of range.
func (b *Buffer[T]) Row(r int) []T {
	if r < 0 || r >= b.height {
		return nil
	}
	start := r * b.width
	return b.pix[start : start+b.width]
}

// Fill sets every element to v.
func (b *Buffer[T]) Fill(v T) {
	for i := range b.pix {
		b.pix[i] = v
	}
}

// Equal compares dimensions first, then elements.
func (b *Buffer[T]) Equal(o *Buffer[T]) bool {
	if b == nil || o == nil {
		return b == o
	}
	if !b.SameSize(o) {
		return false
	}
	for i, v := range b.pix {
		if o.pix[i] != v {
			return false
		}
	}
	return true
}

// Clone deep-copies b into a new reservation from the same allocator.
func (b *Buffer[T]) Clone() (*Buffer[T], error) {
	c, err := New[T](b.width, b.height, b.Allocator())
	if err != nil {
		return nil, err
	}
	copy(c.pix, b.pix)
	return c, nil
}

// Move transfers ownership of the pixels to a new Buffer in O(1). b is left
// empty (0x0) and may still be freed safely.
func (b *Buffer[T]) Move() *Buffer[T] {
	m := &Buffer[T]{
		pix:     b.pix,
		width:   b.width,
		height:  b.height,
		alloc:   b.alloc,
		release: b.release,
	}
	b.pix = nil
	b.width, b.height = 0, 0
	b.release = nil
	return m
}

// Assign makes b a deep copy of src. When the dimensions differ the storage
// is reallocated; if that reservation fails b is left unchanged.
func (b *Buffer[T]) Assign(src *Buffer[T]) error {
	if b == src {
		return nil
	}
	if b.SameSize(src) {
		copy(b.pix, src.pix)
		return nil
	}
	a := b.Allocator()
	release, err := reserve[T](src.width, src.height, a)
	if err != nil {
		return err
	}
	pix := make([]T, len(src.pix))
	copy(pix, src.pix)
	b.Free()
	b.pix, b.width, b.height = pix, src.width, src.height
	b.alloc, b.release = a, release
	return nil
}

// CopyFrom copies src into b without reallocating. Both buffers must have
// the same dimensions.
func (b *Buffer[T]) CopyFrom(src *Buffer[T]) error {
	if !b.SameSize(src) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, b.width, b.height, src.width, src.height)
	}
	copy(b.pix, src.pix)
	return nil
}

// Crop copies the w x h rectangle whose top-left cell is column x, row y.
func (b *Buffer[T]) Crop(x, y, w, h int) (*Buffer[T], error) {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > b.width || y+h > b.height {
		return nil, fmt.Errorf("%w: crop %dx%d+%d+%d of %dx%d", ErrIndexOutOfRange, w, h, x, y, b.width, b.height)
	}
	out, err := New[T](w, h, b.Allocator())
	if err != nil {
		return nil, err
	}
	for r := range h {
		copy(out.Row(r), b.pix[(y+r)*b.width+x:(y+r)*b.width+x+w])
	}
	return out, nil
}

// Free releases the reservation and empties b. Calling Free more than once
// is safe.
func (b *Buffer[T]) Free() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	b.pix = nil
	b.width, b.height = 0, 0
}

func (b *Buffer[T]) String() string {
	var zero T
	return fmt.Sprintf("pixbuf.Buffer[%T]{%dx%d}", zero, b.width, b.height)
}
