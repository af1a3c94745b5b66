// Command polarpics dithers a picture the way the camera firmware does and
// sends it to a file, an OLED panel or a thermal printer.
//
// Examples:
//
//	polarpics -in cat.jpg -out cat.png
//	polarpics -in cat.jpg -mode bilevel -method atkinson -serial /dev/ttyUSB0 -invert
//	polarpics -in cat.jpg -mode ordered -oled -scale 0.2
//
// Hardware Setup:
//
// The OLED preview uses an SSD1306 on the default I2C bus:
//
//	Display    Raspberry Pi
//	GND        GND
//	VCC        3.3V
//	SCL        GPIO3 (I2C1 SCL)
//	SDA        GPIO2 (I2C1 SDA)
//
// The printer is any thermal printer that accepts raw raster bytes on a
// serial port. Framing commands, if the printer needs them, must be sent
// separately.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"os/signal"

	"github.com/shirou/gopsutil/v3/mem"
	"go.bug.st/serial"
	_ "golang.org/x/image/bmp"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/flavioheleno/polarpics/bitbuf"
	"github.com/flavioheleno/polarpics/display"
	"github.com/flavioheleno/polarpics/dither"
	"github.com/flavioheleno/polarpics/pipeline"
	"github.com/flavioheleno/polarpics/pixbuf"
	"github.com/flavioheleno/polarpics/printer"
	"github.com/flavioheleno/polarpics/source"
)

var (
	in        = flag.String("in", "", "Input image (PNG, JPEG, GIF or BMP)")
	out       = flag.String("out", "", "Write the last result as PNG to this file")
	rgb565    = flag.String("rgb565", "", "Write the last gray result as raw big-endian RGB565 to this file")
	gray4     = flag.String("gray4", "", "Write the last gray result as raw 4-bit packed gray to this file")
	maxWidth  = flag.Int("width", 384, "Scale the input down to at most this many pixels wide (0 keeps it)")
	frames    = flag.Int("frames", 1, "Number of frames to process (0 runs until interrupted)")
	mode      = flag.String("mode", "bilevel", "Dither output: inplace, bilevel, ordered")
	method    = flag.String("method", "floyd-steinberg", "Error diffusion kernel")
	threshold = flag.Float64("threshold", 0.5, "Quantization threshold in (0, 1)")
	scale     = flag.Float64("scale", 0, "Nearest neighbour ratio applied during grayscale conversion")
	box       = flag.Int("box", 0, "Box filter shrink factor applied after grayscale conversion")
	bayer     = flag.Int("bayer", 4, "Bayer matrix size for ordered mode")
	dram      = flag.Int("dram", 0, "Fast memory budget in bytes (0 uses the Go heap)")
	psram     = flag.Int("psram", 4<<20, "Slow memory budget in bytes, used with -dram")
	oled      = flag.Bool("oled", false, "Preview on an SSD1306 OLED")
	i2cBus    = flag.String("i2c", "", "I2C bus name (empty for default)")
	port      = flag.String("serial", "", "Serial port of a raw thermal printer")
	baud      = flag.Int("baud", 115200, "Serial baud rate")
	invert    = flag.Bool("invert", false, "Send on cells as 0 bits to the printer")
	verbose   = flag.Bool("v", false, "Log every stage and memory usage")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		logger.Error("polarpics failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if *in == "" {
		return errors.New("-in is required")
	}
	img, err := loadImage(*in)
	if err != nil {
		return err
	}
	frame := source.FrameOf(img, *maxWidth)
	logger.Info("input loaded", "file", *in, "frame", frame.String())

	opts, err := buildOpts(logger)
	if err != nil {
		return err
	}
	p, err := pipeline.New(source.NewStill(frame), opts)
	if err != nil {
		return err
	}

	var last pipeline.Result
	sinks := []pipeline.Sink{pipeline.SinkFunc(func(r pipeline.Result) error {
		last.Free()
		k, err := keep(r)
		last = k
		return err
	})}
	defer func() { last.Free() }()

	if *oled {
		panel, closeFn, err := openPanel(logger)
		if err != nil {
			return err
		}
		defer closeFn()
		sinks = append(sinks, pipeline.PanelSink(panel))
	}
	if *port != "" {
		prn, closeFn, err := openPrinter()
		if err != nil {
			return err
		}
		defer closeFn()
		sinks = append(sinks, pipeline.PrinterSink(prn))
	}

	logHostMemory(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	st, err := p.Run(ctx, *frames, sinks...)
	logger.Info("done", "processed", st.Processed, "skipped", st.Skipped)
	logHostMemory(logger)
	if err != nil && ctx.Err() == nil {
		return err
	}

	if *out != "" {
		if err := writePNG(*out, last); err != nil {
			return err
		}
	}
	if *rgb565 != "" && last.Gray != nil {
		if err := os.WriteFile(*rgb565, display.EncodeRGB565(last.Gray), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *rgb565, err)
		}
	}
	if *gray4 != "" && last.Gray != nil {
		if err := os.WriteFile(*gray4, display.EncodeGray4(last.Gray), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *gray4, err)
		}
	}
	return nil
}

func buildOpts(logger *slog.Logger) (*pipeline.Opts, error) {
	m, err := dither.ParseMethod(*method)
	if err != nil {
		return nil, err
	}
	md, err := pipeline.ParseMode(*mode)
	if err != nil {
		return nil, err
	}
	var alloc pixbuf.Allocator = pixbuf.Heap
	if *dram > 0 {
		alloc = &pixbuf.Tiered{
			Fast:           pixbuf.NewPool("dram", *dram),
			Slow:           pixbuf.NewPool("psram", *psram),
			LargeThreshold: *dram / 4,
		}
	}
	return &pipeline.Opts{
		Threshold: float32(*threshold),
		Method:    m,
		Mode:      md,
		Scale:     *scale,
		Box:       *box,
		BayerSize: *bayer,
		Allocator: alloc,
		Logger:    logger,
	}, nil
}

// keep copies r onto the heap so it outlives the pipeline's Free.
func keep(r pipeline.Result) (pipeline.Result, error) {
	var k pipeline.Result
	if r.Gray != nil {
		g, err := pixbuf.FromSlice(r.Gray.Width(), r.Gray.Height(), append([]uint8(nil), r.Gray.Pix()...), nil)
		if err != nil {
			return k, err
		}
		k.Gray = g
	}
	if r.Bits != nil {
		b, err := bitbuf.FromBytes(r.Bits.Width(), r.Bits.Height(), append([]byte(nil), r.Bits.Bytes()...), nil)
		if err != nil {
			k.Free()
			return pipeline.Result{}, err
		}
		k.Bits = b
	}
	return k, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, r pipeline.Result) error {
	var src image.Image
	switch {
	case r.Bits != nil:
		src = r.Bits.Image()
	case r.Gray != nil:
		src = &image.Gray{
			Pix:    r.Gray.Pix(),
			Stride: r.Gray.Width(),
			Rect:   image.Rect(0, 0, r.Gray.Width(), r.Gray.Height()),
		}
	default:
		return errors.New("no result to write")
	}
	dst := image.NewGray(src.Bounds())
	draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func openPanel(logger *slog.Logger) (*display.Panel, func(), error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph.io: %w", err)
	}
	bus, err := i2creg.Open(*i2cBus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize ssd1306: %w", err)
	}
	panel := display.New(dev)
	return panel, func() {
		halt(logger, panel)
		bus.Close()
	}, nil
}

// halt stops d and logs, rather than returns, a failure to do so.
func halt(logger *slog.Logger, d interface{ Halt() error }) {
	if err := d.Halt(); err != nil {
		logger.Warn("failed to halt display", "error", err)
	}
}

func openPrinter() (*printer.Raw, func(), error) {
	sp, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", *port, err)
	}
	prn, err := printer.New(&printer.StreamConn{W: sp, Name: *port}, &printer.Opts{Invert: *invert})
	if err != nil {
		sp.Close()
		return nil, nil, err
	}
	return prn, func() { sp.Close() }, nil
}

func logHostMemory(logger *slog.Logger) {
	v, err := mem.VirtualMemory()
	if err != nil {
		logger.Debug("host memory unavailable", "error", err)
		return
	}
	logger.Debug("host memory", "total", v.Total, "available", v.Available, "used_percent", v.UsedPercent)
}
