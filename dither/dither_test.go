package dither

import (
	"errors"
	"math"
	"testing"

	mwdither "github.com/makeworld-the-better-one/dither/v2"

	"github.com/flavioheleno/polarpics/bitbuf"
	"github.com/flavioheleno/polarpics/pixbuf"
)

func gray(t *testing.T, w, h int, pix ...uint8) *pixbuf.Gray {
	t.Helper()
	b, err := pixbuf.FromSlice(w, h, pix, nil)
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	return b
}

func TestKernelSums(t *testing.T) {
	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			k, ok := Lookup(m)
			if !ok {
				t.Fatalf("Lookup(%v) not found", m)
			}
			want := float32(1)
			if m == Atkinson {
				want = 0.75
			}
			if got := k.Sum(); math.Abs(float64(got-want)) > 1e-6 {
				t.Errorf("Sum() = %v, want %v", got, want)
			}
			for _, tap := range k.Taps {
				if tap.DRow < 0 || (tap.DRow == 0 && tap.DCol <= 0) {
					t.Errorf("tap %+v points at an already visited cell", tap)
				}
			}
		})
	}
}

func TestKernelsMatchReferenceMatrices(t *testing.T) {
	tests := []struct {
		method Method
		matrix mwdither.ErrorDiffusionMatrix
	}{
		{FloydSteinberg, mwdither.FloydSteinberg},
		{Atkinson, mwdither.Atkinson},
		{JarvisJudiceNinke, mwdither.JarvisJudiceNinke},
		{Stucki, mwdither.Stucki},
		{Burkes, mwdither.Burkes},
		{Sierra3, mwdither.Sierra},
		{Sierra2, mwdither.TwoRowSierra},
		{Sierra24A, mwdither.SierraLite},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			k, _ := Lookup(tt.method)
			weights := map[[2]int]float32{}
			for _, tap := range k.Taps {
				weights[[2]int{tap.DRow, tap.DCol}] = tap.Weight
			}

			// The current cell sits just left of the first non-zero entry
			// of the first row.
			cur := -1
			for i, v := range tt.matrix[0] {
				if v != 0 {
					cur = i - 1
					break
				}
			}

			n := 0
			for r, row := range tt.matrix {
				for c, v := range row {
					if v == 0 {
						continue
					}
					n++
					got, ok := weights[[2]int{r, c - cur}]
					if !ok || math.Abs(float64(got-v)) > 1e-6 {
						t.Errorf("tap (%d, %d) = %v, want %v", r, c-cur, got, v)
					}
				}
			}
			if n != len(k.Taps) {
				t.Errorf("len(Taps) = %d, want %d", len(k.Taps), n)
			}
		})
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	k, _ := Lookup(FloydSteinberg)
	k.Taps[0].Weight = 1
	again, _ := Lookup(FloydSteinberg)
	if again.Taps[0].Weight != 7.0/16 {
		t.Errorf("kernel table was modified through Lookup: %v", again.Taps[0])
	}
	if _, ok := Lookup(Method(99)); ok {
		t.Error("Lookup(99) found a kernel")
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"floyd-steinberg", FloydSteinberg, false},
		{"FloydSteinberg", FloydSteinberg, false},
		{"jarvis_judice_ninke", JarvisJudiceNinke, false},
		{"Sierra2-4A", Sierra24A, false},
		{"stevenson arce", StevensonArce, false},
		{"bayer", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownMethod) {
				t.Errorf("ParseMethod(%q) error = %v, want %v", tt.in, err, ErrUnknownMethod)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	for _, m := range Methods() {
		if got, err := ParseMethod(m.String()); err != nil || got != m {
			t.Errorf("ParseMethod(%q) = %v, %v, want %v", m.String(), got, err, m)
		}
	}
	if s := Method(42).String(); s != "Method(42)" {
		t.Errorf("String() = %q, want %q", s, "Method(42)")
	}
}

func TestQuantizeSingleCell(t *testing.T) {
	tests := []struct {
		name      string
		in        uint8
		threshold float32
		want      uint8
	}{
		{"dark", 100, 0.5, 0},
		{"light", 200, 0.5, 255},
		{"white", 255, 0.5, 255},
		{"black", 0, 0.5, 0},
		{"low threshold", 60, 0.2, 255},
		{"high threshold", 200, 0.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, m := range Methods() {
				g := gray(t, 1, 1, tt.in)
				if err := Quantize(g, tt.threshold, m); err != nil {
					t.Fatalf("Quantize(%v) error = %v", m, err)
				}
				if got := g.Pix()[0]; got != tt.want {
					t.Errorf("Quantize(%v) = %d, want %d", m, got, tt.want)
				}
			}
		})
	}
}

func TestQuantizeBilevelInputIsStable(t *testing.T) {
	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			g, _ := pixbuf.New[uint8](4, 4, nil)
			for i := range g.Pix() {
				if (i/4+i%4)%2 == 0 {
					g.Pix()[i] = 255
				}
			}
			want, _ := g.Clone()

			if err := Quantize(g, DefaultThreshold, m); err != nil {
				t.Fatalf("Quantize() error = %v", err)
			}
			if !g.Equal(want) {
				t.Errorf("Quantize() = %v, want %v", g.Pix(), want.Pix())
			}
		})
	}
}

func TestQuantizeFloydSteinberg(t *testing.T) {
	g := gray(t, 2, 2,
		200, 100,
		100, 100,
	)
	if err := Quantize(g, DefaultThreshold, FloydSteinberg); err != nil {
		t.Fatalf("Quantize() error = %v", err)
	}
	want := []uint8{255, 0, 0, 255}
	for i, v := range want {
		if g.Pix()[i] != v {
			t.Errorf("Pix() = %v, want %v", g.Pix(), want)
			break
		}
	}
}

func TestBilevelFloydSteinberg(t *testing.T) {
	g := gray(t, 2, 2,
		200, 100,
		100, 100,
	)
	out, err := Bilevel(g, DefaultThreshold, FloydSteinberg, nil)
	if err != nil {
		t.Fatalf("Bilevel() error = %v", err)
	}
	if out.Width() != 2 || out.Height() != 2 {
		t.Fatalf("Bilevel() = %v, want 2x2", out)
	}
	if out.Bytes()[0] != 0x90 {
		t.Errorf("Bytes()[0] = 0x%02X, want 0x90", out.Bytes()[0])
	}
	// The current cell is read, not written; its neighbours carry the error.
	wantGray := []uint8{200, 75, 96, 161}
	for i, v := range wantGray {
		if g.Pix()[i] != v {
			t.Errorf("gray after Bilevel() = %v, want %v", g.Pix(), wantGray)
			break
		}
	}
}

func TestBilevelUniform(t *testing.T) {
	tests := []struct {
		name string
		fill uint8
		want bool
	}{
		{"black", 0, false},
		{"white", 255, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := pixbuf.NewFilled[uint8](13, 7, tt.fill, nil)
			out, err := Bilevel(g, DefaultThreshold, Stucki, nil)
			if err != nil {
				t.Fatalf("Bilevel() error = %v", err)
			}
			want, _ := bitbuf.NewFilled(13, 7, tt.want, nil)
			if !out.Equal(want) {
				t.Errorf("Bilevel() = % X, want % X", out.Bytes(), want.Bytes())
			}
		})
	}
}

func TestBilevelDensity(t *testing.T) {
	// Mid gray should come out roughly half on for every kernel.
	for _, m := range Methods() {
		t.Run(m.String(), func(t *testing.T) {
			g, _ := pixbuf.NewFilled[uint8](32, 32, 128, nil)
			out, err := Bilevel(g, DefaultThreshold, m, nil)
			if err != nil {
				t.Fatalf("Bilevel() error = %v", err)
			}
			on := 0
			for r := range out.Height() {
				for c := range out.Width() {
					if v, _ := out.Get(r, c); v {
						on++
					}
				}
			}
			if on < 32*32*3/10 || on > 32*32*7/10 {
				t.Errorf("%d of %d cells on, want about half", on, 32*32)
			}
		})
	}
}

func TestInvalidArgumentsLeaveBufferUntouched(t *testing.T) {
	tests := []struct {
		name      string
		method    Method
		threshold float32
		wantErr   error
	}{
		{"unknown method", Method(42), 0.5, ErrUnknownMethod},
		{"zero threshold", FloydSteinberg, 0, ErrThreshold},
		{"one threshold", FloydSteinberg, 1, ErrThreshold},
		{"nan threshold", FloydSteinberg, float32(math.NaN()), ErrThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gray(t, 3, 1, 10, 130, 250)
			want, _ := g.Clone()

			if err := Quantize(g, tt.threshold, tt.method); !errors.Is(err, tt.wantErr) {
				t.Errorf("Quantize() error = %v, want %v", err, tt.wantErr)
			}
			if _, err := Bilevel(g, tt.threshold, tt.method, nil); !errors.Is(err, tt.wantErr) {
				t.Errorf("Bilevel() error = %v, want %v", err, tt.wantErr)
			}
			if !g.Equal(want) {
				t.Errorf("buffer = %v after error, want %v", g.Pix(), want.Pix())
			}
		})
	}
}

func TestBilevelInto(t *testing.T) {
	g, _ := pixbuf.NewFilled[uint8](5, 3, 255, nil)
	dst, _ := bitbuf.New(5, 3, nil)
	dst.Set(0, 0, true)

	if err := BilevelInto(dst, g, DefaultThreshold, Burkes); err != nil {
		t.Fatalf("BilevelInto() error = %v", err)
	}
	want, _ := bitbuf.NewFilled(5, 3, true, nil)
	if !dst.Equal(want) {
		t.Errorf("BilevelInto() = % X, want % X", dst.Bytes(), want.Bytes())
	}

	g.Fill(0)
	if err := BilevelInto(dst, g, DefaultThreshold, Burkes); err != nil {
		t.Fatalf("BilevelInto() error = %v", err)
	}
	if on, _ := dst.Get(0, 0); on {
		t.Error("BilevelInto() did not overwrite previous contents")
	}

	small, _ := bitbuf.New(3, 5, nil)
	if err := BilevelInto(small, g, DefaultThreshold, Burkes); !errors.Is(err, pixbuf.ErrDimensionMismatch) {
		t.Errorf("BilevelInto(3x5) error = %v, want %v", err, pixbuf.ErrDimensionMismatch)
	}
}

func TestBilevelAllocationFailure(t *testing.T) {
	g, _ := pixbuf.New[uint8](64, 64, nil)
	pool := pixbuf.NewPool("dram", 100)
	if _, err := Bilevel(g, DefaultThreshold, Atkinson, pool); !errors.Is(err, pixbuf.ErrAllocation) {
		t.Errorf("Bilevel() error = %v, want %v", err, pixbuf.ErrAllocation)
	}
}

func TestOrdered(t *testing.T) {
	count := func(b *bitbuf.Buffer) int {
		n := 0
		for r := range b.Height() {
			for c := range b.Width() {
				if on, _ := b.Get(r, c); on {
					n++
				}
			}
		}
		return n
	}

	prev := -1
	for _, level := range []uint8{16, 96, 176, 240} {
		g, _ := pixbuf.NewFilled[uint8](16, 16, level, nil)
		want, _ := g.Clone()
		out, err := Ordered(g, 4, nil)
		if err != nil {
			t.Fatalf("Ordered() error = %v", err)
		}
		if out.Width() != 16 || out.Height() != 16 {
			t.Fatalf("Ordered() = %v, want 16x16", out)
		}
		if !g.Equal(want) {
			t.Error("Ordered() modified its input")
		}
		n := count(out)
		if n < prev {
			t.Errorf("level %d has %d cells on, fewer than %d for a darker level", level, n, prev)
		}
		prev = n
	}
}

func TestOrderedInvalidSize(t *testing.T) {
	g, _ := pixbuf.New[uint8](4, 4, nil)
	for _, size := range []int{0, 1, 3, 5, 32} {
		if _, err := Ordered(g, size, nil); !errors.Is(err, ErrBayerSize) {
			t.Errorf("Ordered(%d) error = %v, want %v", size, err, ErrBayerSize)
		}
	}
}
