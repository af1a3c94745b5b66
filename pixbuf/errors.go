package pixbuf

import "errors"

var (
	// ErrAllocation is returned when an Allocator refuses a reservation.
	ErrAllocation = errors.New("pixbuf: allocation failed")
	// ErrDimensionMismatch is returned by operations that need equally sized buffers.
	ErrDimensionMismatch = errors.New("pixbuf: dimension mismatch")
	// ErrIndexOutOfRange is returned for any access outside the buffer.
	ErrIndexOutOfRange = errors.New("pixbuf: index out of range")
	// ErrInvalidDimensions is returned for negative widths or heights.
	ErrInvalidDimensions = errors.New("pixbuf: invalid dimensions")
)
