// Package polarpics is the image-processing kernel of a camera that prints
// its pictures on a thermal printer and previews them on a small panel.
//
// The kernel lives in the sub-packages; this package only documents how
// they fit together.
//
// # Stages
//
//	source     raw camera frame or image.Image -> pixbuf.RGB
//	grayscale  pixbuf.RGB -> pixbuf.Gray (0.299 R + 0.587 G + 0.144 B)
//	rescale    nearest neighbour or box average on either buffer type
//	dither     error diffusion in place, into a bitbuf.Buffer, or Bayer ordered
//	display    blit onto a periph.io display.Drawer with differential updates
//	printer    raw packed bytes to a periph.io conn.Conn
//	pipeline   all of the above, one frame at a time
//
// # Memory
//
// Every buffer is reserved from a pixbuf.Allocator. On a board with little
// internal RAM, model it with pixbuf.Tiered so that large frames go to
// external RAM first:
//
//	alloc := &pixbuf.Tiered{
//		Fast:           pixbuf.NewPool("dram", 160*1024),
//		Slow:           pixbuf.NewPool("psram", 4*1024*1024),
//		LargeThreshold: 32 * 1024,
//	}
//
// A refused reservation fails with pixbuf.ErrAllocation. The pipeline
// abandons that frame and carries on with the next one.
//
// # Basic Usage
//
//	rgb, err := source.Decode(frame, alloc)
//	if err != nil {
//		return err
//	}
//	gray, err := grayscale.Convert(rgb, alloc)
//	rgb.Free()
//	if err != nil {
//		return err
//	}
//	bits, err := dither.Bilevel(gray, dither.DefaultThreshold, dither.FloydSteinberg, alloc)
//	gray.Free()
//	if err != nil {
//		return err
//	}
//	defer bits.Free()
//	return prn.Print(bits)
//
// # Kernels
//
// dither.Methods lists the nine error-diffusion kernels: Floyd-Steinberg,
// Atkinson, Jarvis-Judice-Ninke, Stucki, Burkes, Sierra3, Sierra2,
// Sierra2-4A and Stevenson-Arce. Atkinson spreads only 6/8 of the error.
//
// # Bit Layout
//
// bitbuf packs cells continuously across rows, most significant bit first,
// without row padding. Cell (r, c) is bit 7-(id%8) of byte id/8 where
// id = r*Width+c. On cells are white; printers that burn dots for 1 bits
// need printer.Opts.Invert.
package polarpics
