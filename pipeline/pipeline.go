// Package pipeline runs camera frames through grayscale conversion,
// rescaling and dithering, and hands the result to sinks.
//
// Intermediate buffers are freed as soon as the next stage has its input,
// so at most two frame-sized buffers are alive at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/flavioheleno/polarpics/bitbuf"
	"github.com/flavioheleno/polarpics/display"
	"github.com/flavioheleno/polarpics/dither"
	"github.com/flavioheleno/polarpics/grayscale"
	"github.com/flavioheleno/polarpics/pixbuf"
	"github.com/flavioheleno/polarpics/printer"
	"github.com/flavioheleno/polarpics/rescale"
	"github.com/flavioheleno/polarpics/source"
)

// Mode selects the output of the dither stage.
type Mode uint8

const (
	// InPlace quantizes the gray buffer itself.
	InPlace Mode = iota
	// Bilevel diffuses error into a packed bit buffer.
	Bilevel
	// Ordered applies a Bayer matrix into a packed bit buffer.
	Ordered
)

func (m Mode) String() string {
	switch m {
	case InPlace:
		return "inplace"
	case Bilevel:
		return "bilevel"
	case Ordered:
		return "ordered"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{InPlace, Bilevel, Ordered} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("pipeline: unknown mode %q", s)
}

// Opts is the configuration for a Pipeline.
type Opts struct {
	// Threshold in (0, 1). 0 means dither.DefaultThreshold.
	Threshold float32
	// Method is the error-diffusion kernel for InPlace and Bilevel.
	Method dither.Method
	Mode   Mode

	// Scale is a nearest-neighbour ratio fused into grayscale conversion.
	// 0 and 1 disable it.
	Scale float64
	// Box shrinks the gray buffer by 1/Box with a box filter. 0 and 1
	// disable it.
	Box int
	// BayerSize is the Ordered matrix size. 0 means 4.
	BayerSize int

	// Allocator for every buffer. nil means pixbuf.Heap.
	Allocator pixbuf.Allocator
	// Logger receives per-stage debug records. nil discards them.
	Logger *slog.Logger
}

// Result is the output of one frame. Exactly one field is set.
type Result struct {
	Gray *pixbuf.Gray
	Bits *bitbuf.Buffer
}

// Free releases the result buffers.
func (r Result) Free() {
	if r.Gray != nil {
		r.Gray.Free()
	}
	if r.Bits != nil {
		r.Bits.Free()
	}
}

// Sink consumes results. It must not keep the buffers after returning.
type Sink interface {
	Consume(r Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r Result) error

// Consume implements Sink.
func (f SinkFunc) Consume(r Result) error {
	return f(r)
}

// PanelSink draws results on p.
func PanelSink(p *display.Panel) Sink {
	return SinkFunc(func(r Result) error {
		if r.Bits != nil {
			return p.DrawBits(r.Bits)
		}
		return p.DrawGray(r.Gray)
	})
}

// PrinterSink prints bi-level results on p. Gray results are refused.
func PrinterSink(p *printer.Raw) Sink {
	return SinkFunc(func(r Result) error {
		if r.Bits == nil {
			return errors.New("pipeline: printer needs a bi-level result")
		}
		return p.Print(r.Bits)
	})
}

// Stats counts frames handled by Run.
type Stats struct {
	Processed int
	Skipped   int
}

// Pipeline processes frames from a camera.
type Pipeline struct {
	cam  source.Camera
	opts Opts
	log  *slog.Logger
}

// New returns a Pipeline reading from cam. A nil opts uses the defaults:
// Floyd-Steinberg in place at threshold 0.5.
func New(cam source.Camera, opts *Opts) (*Pipeline, error) {
	if opts == nil {
		opts = &Opts{}
	}
	o := *opts
	if o.Threshold == 0 {
		o.Threshold = dither.DefaultThreshold
	}
	if !(o.Threshold > 0 && o.Threshold < 1) {
		return nil, fmt.Errorf("pipeline: %w: %v", dither.ErrThreshold, o.Threshold)
	}
	if _, ok := dither.Lookup(o.Method); !ok {
		return nil, fmt.Errorf("pipeline: %w: %s", dither.ErrUnknownMethod, o.Method)
	}
	if o.Mode > Ordered {
		return nil, fmt.Errorf("pipeline: unknown mode %s", o.Mode)
	}
	if o.Scale < 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) {
		return nil, fmt.Errorf("pipeline: %w: %v", rescale.ErrInvalidRatio, o.Scale)
	}
	if o.Box < 0 {
		return nil, fmt.Errorf("pipeline: %w: 1/%d", rescale.ErrInvalidRatio, o.Box)
	}
	if o.BayerSize == 0 {
		o.BayerSize = 4
	}
	switch o.BayerSize {
	case 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("pipeline: %w: %d", dither.ErrBayerSize, o.BayerSize)
	}
	if o.Allocator == nil {
		o.Allocator = pixbuf.Heap
	}
	log := o.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cam: cam, opts: o, log: log}, nil
}

// Opts returns the effective options.
func (p *Pipeline) Opts() Opts {
	return p.opts
}

// logMemory records the allocator accounting after a stage.
func (p *Pipeline) logMemory(stage string) {
	for _, s := range pixbuf.Usage(p.opts.Allocator) {
		p.log.Debug("memory", "stage", stage, "pool", s.Name,
			"total", s.Capacity, "free", s.Free(), "used", s.Used, "peak", s.Peak)
	}
}

// gray decodes f and converts it to gray, freeing the RGB buffer before
// returning.
func (p *Pipeline) gray(f source.Frame) (*pixbuf.Gray, error) {
	rgb, err := source.Decode(f, p.opts.Allocator)
	if err != nil {
		return nil, fmt.Errorf("pipeline: decode %s: %w", f, err)
	}
	p.logMemory("decode")

	var gray *pixbuf.Gray
	if p.opts.Scale != 0 && p.opts.Scale != 1 {
		gray, err = grayscale.ConvertRescaled(rgb, p.opts.Scale, p.opts.Allocator)
	} else {
		gray, err = grayscale.Convert(rgb, p.opts.Allocator)
	}
	rgb.Free()
	if err != nil {
		return nil, fmt.Errorf("pipeline: grayscale: %w", err)
	}
	p.log.Debug("grayscale", "width", gray.Width(), "height", gray.Height())
	p.logMemory("grayscale")

	if p.opts.Box > 1 {
		boxed, err := rescale.Box(gray, 1, p.opts.Box, p.opts.Allocator)
		gray.Free()
		if err != nil {
			return nil, fmt.Errorf("pipeline: box filter: %w", err)
		}
		gray = boxed
		p.log.Debug("box filter", "width", gray.Width(), "height", gray.Height())
		p.logMemory("box filter")
	}
	return gray, nil
}

// Process runs one frame through every stage. The caller owns the result
// and must Free it.
func (p *Pipeline) Process(f source.Frame) (Result, error) {
	gray, err := p.gray(f)
	if err != nil {
		return Result{}, err
	}

	switch p.opts.Mode {
	case InPlace:
		if err := dither.Quantize(gray, p.opts.Threshold, p.opts.Method); err != nil {
			gray.Free()
			return Result{}, fmt.Errorf("pipeline: dither: %w", err)
		}
		return Result{Gray: gray}, nil
	case Bilevel:
		bits, err := dither.Bilevel(gray, p.opts.Threshold, p.opts.Method, p.opts.Allocator)
		gray.Free()
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: dither: %w", err)
		}
		p.logMemory("dither")
		return Result{Bits: bits}, nil
	default:
		bits, err := dither.Ordered(gray, p.opts.BayerSize, p.opts.Allocator)
		gray.Free()
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: dither: %w", err)
		}
		p.logMemory("dither")
		return Result{Bits: bits}, nil
	}
}

// Run captures and processes frames until n frames were handled, ctx is
// done, or a stage fails. n <= 0 runs until ctx is done. Frames that fail
// with pixbuf.ErrAllocation are logged and skipped. Every result is handed
// to each sink in order and freed afterwards.
func (p *Pipeline) Run(ctx context.Context, n int, sinks ...Sink) (Stats, error) {
	var st Stats
	for n <= 0 || st.Processed+st.Skipped < n {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		f, err := p.cam.Capture(ctx)
		if err != nil {
			return st, fmt.Errorf("pipeline: capture: %w", err)
		}
		res, err := p.Process(f)
		p.cam.Release(f)
		if err != nil {
			if errors.Is(err, pixbuf.ErrAllocation) {
				st.Skipped++
				p.log.Warn("frame skipped", "frame", f.String(), "error", err)
				continue
			}
			return st, err
		}
		for _, s := range sinks {
			if err := s.Consume(res); err != nil {
				res.Free()
				return st, fmt.Errorf("pipeline: sink: %w", err)
			}
		}
		res.Free()
		st.Processed++
		p.logMemory("frame")
	}
	return st, nil
}
