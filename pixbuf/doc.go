// Package pixbuf provides fixed-size, row-major pixel buffers with explicit
// ownership for memory-constrained image pipelines.
//
// A Buffer holds exactly Width*Height elements. Two element types are
// supported: RGB888 (three 8-bit channels, interleaved) and uint8 (8-bit
// grayscale). Element (r, c) lives at index r*Width+c:
//
//	Width 3, Height 2
//	Index:  0  1  2 | 3  4  5
//	Cell:  (0,0)(0,1)(0,2) (1,0)(1,1)(1,2)
//
// Buffers are allocated through an Allocator. The default Heap allocator
// never refuses; Pool and Tiered model small fast RAM and large external RAM,
// and refuse requests that would not fit with ErrAllocation so that a caller
// can abandon one frame without aborting the process.
//
// Ownership rules:
//
// - Clone deep-copies the pixels into a new reservation.
//
// - Move transfers the pixels in O(1) and leaves the source empty.
//
// - Free returns the reservation exactly once; later calls are no-ops.
//
// Example usage:
//
//	fast := pixbuf.NewPool("dram", 160*1024)
//	slow := pixbuf.NewPool("psram", 4*1024*1024)
//	alloc := &pixbuf.Tiered{Fast: fast, Slow: slow, LargeThreshold: 32 * 1024}
//
//	gray, err := pixbuf.New[uint8](320, 240, alloc)
//	if err != nil {
//		return err // frame abandoned
//	}
//	defer gray.Free()
package pixbuf
