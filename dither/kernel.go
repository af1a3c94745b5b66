package dither

import (
	"fmt"
	"strings"
)

// Method selects an error-diffusion kernel.
type Method uint8

const (
	FloydSteinberg Method = iota
	Atkinson
	JarvisJudiceNinke
	Stucki
	Burkes
	Sierra3
	Sierra2
	Sierra24A
	StevensonArce

	numMethods = iota
)

var methodNames = [numMethods]string{
	FloydSteinberg:    "floyd-steinberg",
	Atkinson:          "atkinson",
	JarvisJudiceNinke: "jarvis-judice-ninke",
	Stucki:            "stucki",
	Burkes:            "burkes",
	Sierra3:           "sierra3",
	Sierra2:           "sierra2",
	Sierra24A:         "sierra2-4a",
	StevensonArce:     "stevenson-arce",
}

func (m Method) String() string {
	if m >= numMethods {
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
	return methodNames[m]
}

// Methods returns every known method in table order.
func Methods() []Method {
	out := make([]Method, numMethods)
	for i := range out {
		out[i] = Method(i)
	}
	return out
}

// ParseMethod returns the method named s. Matching ignores case, dashes,
// underscores and spaces, so "FloydSteinberg" and "floyd_steinberg" both
// work.
func ParseMethod(s string) (Method, error) {
	key := normalize(s)
	for i, name := range methodNames {
		if normalize(name) == key {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// Tap is one diffusion target relative to the current cell.
type Tap struct {
	DRow   int
	DCol   int
	Weight float32
}

// Kernel is the diffusion pattern of a Method.
type Kernel struct {
	Method Method
	Name   string
	Taps   []Tap
}

// Sum returns the total weight of the kernel. It is 1 for every kernel
// except Atkinson, which spreads only 6/8 of the error.
func (k Kernel) Sum() float32 {
	var s float32
	for _, t := range k.Taps {
		s += t.Weight
	}
	return s
}

func taps(denom float32, t ...[3]float32) []Tap {
	out := make([]Tap, len(t))
	for i, v := range t {
		out[i] = Tap{DRow: int(v[0]), DCol: int(v[1]), Weight: v[2] / denom}
	}
	return out
}

// kernels is indexed by Method. Entries are {row offset, column offset,
// numerator}.
var kernels = [numMethods][]Tap{
	FloydSteinberg: taps(16,
		[3]float32{0, 1, 7},
		[3]float32{1, -1, 3}, [3]float32{1, 0, 5}, [3]float32{1, 1, 1},
	),
	Atkinson: taps(8,
		[3]float32{0, 1, 1}, [3]float32{0, 2, 1},
		[3]float32{1, -1, 1}, [3]float32{1, 0, 1}, [3]float32{1, 1, 1},
		[3]float32{2, 0, 1},
	),
	JarvisJudiceNinke: taps(48,
		[3]float32{0, 1, 7}, [3]float32{0, 2, 5},
		[3]float32{1, -2, 3}, [3]float32{1, -1, 5}, [3]float32{1, 0, 7}, [3]float32{1, 1, 5}, [3]float32{1, 2, 3},
		[3]float32{2, -2, 1}, [3]float32{2, -1, 3}, [3]float32{2, 0, 5}, [3]float32{2, 1, 3}, [3]float32{2, 2, 1},
	),
	Stucki: taps(42,
		[3]float32{0, 1, 8}, [3]float32{0, 2, 4},
		[3]float32{1, -2, 2}, [3]float32{1, -1, 4}, [3]float32{1, 0, 8}, [3]float32{1, 1, 4}, [3]float32{1, 2, 2},
		[3]float32{2, -2, 1}, [3]float32{2, -1, 2}, [3]float32{2, 0, 4}, [3]float32{2, 1, 2}, [3]float32{2, 2, 1},
	),
	Burkes: taps(32,
		[3]float32{0, 1, 8}, [3]float32{0, 2, 4},
		[3]float32{1, -2, 2}, [3]float32{1, -1, 4}, [3]float32{1, 0, 8}, [3]float32{1, 1, 4}, [3]float32{1, 2, 2},
	),
	Sierra3: taps(32,
		[3]float32{0, 1, 5}, [3]float32{0, 2, 3},
		[3]float32{1, -2, 2}, [3]float32{1, -1, 4}, [3]float32{1, 0, 5}, [3]float32{1, 1, 4}, [3]float32{1, 2, 2},
		[3]float32{2, -1, 2}, [3]float32{2, 0, 3}, [3]float32{2, 1, 2},
	),
	Sierra2: taps(16,
		[3]float32{0, 1, 4}, [3]float32{0, 2, 3},
		[3]float32{1, -2, 1}, [3]float32{1, -1, 2}, [3]float32{1, 0, 3}, [3]float32{1, 1, 2}, [3]float32{1, 2, 1},
	),
	Sierra24A: taps(4,
		[3]float32{0, 1, 2},
		[3]float32{1, -1, 1}, [3]float32{1, 0, 1},
	),
	StevensonArce: taps(200,
		[3]float32{0, 2, 32},
		[3]float32{1, -3, 12}, [3]float32{1, -1, 26}, [3]float32{1, 1, 30}, [3]float32{1, 3, 16},
		[3]float32{2, -2, 12}, [3]float32{2, 0, 26}, [3]float32{2, 2, 12},
		[3]float32{3, -3, 5}, [3]float32{3, -1, 12}, [3]float32{3, 1, 12}, [3]float32{3, 3, 5},
	),
}

// Lookup returns the kernel of m. The returned taps are a copy; the table
// itself never changes.
func Lookup(m Method) (Kernel, bool) {
	if m >= numMethods {
		return Kernel{}, false
	}
	return Kernel{
		Method: m,
		Name:   methodNames[m],
		Taps:   append([]Tap(nil), kernels[m]...),
	}, true
}

// lookupTaps returns the shared taps of m for internal, read-only use.
func lookupTaps(m Method) ([]Tap, error) {
	if m >= numMethods {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
	}
	return kernels[m], nil
}
