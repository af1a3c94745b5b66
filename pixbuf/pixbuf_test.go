package pixbuf

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantLen int
		wantErr error
	}{
		{"320x240", 320, 240, 76800, nil},
		{"1x1", 1, 1, 1, nil},
		{"empty", 0, 0, 0, nil},
		{"zero height", 5, 0, 0, nil},
		{"negative width", -1, 4, 0, ErrInvalidDimensions},
		{"negative height", 4, -1, 0, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New[uint8](tt.w, tt.h, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New(%d, %d) error = %v, want %v", tt.w, tt.h, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if b.Len() != tt.wantLen || len(b.Pix()) != tt.wantLen {
				t.Errorf("Len() = %d, len(Pix()) = %d, want %d", b.Len(), len(b.Pix()), tt.wantLen)
			}
			if b.Width() != tt.w || b.Height() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", b.Width(), b.Height(), tt.w, tt.h)
			}
			for i, v := range b.Pix() {
				if v != 0 {
					t.Fatalf("Pix()[%d] = %d, want 0", i, v)
				}
			}
		})
	}
}

func TestReserveSize(t *testing.T) {
	if got := ElemSize[uint8](); got != 1 {
		t.Errorf("ElemSize[uint8]() = %d, want 1", got)
	}
	if got := ElemSize[RGB888](); got != 3 {
		t.Errorf("ElemSize[RGB888]() = %d, want 3", got)
	}

	pool := NewPool("psram", 1<<20)
	b, err := New[RGB888](4, 5, pool)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if pool.Used() != 60 {
		t.Errorf("Used() = %d, want 60", pool.Used())
	}
	b.Free()

	if _, err := New[RGB888](1<<62, 1, nil); !errors.Is(err, ErrAllocation) {
		t.Errorf("New(1<<62, 1) error = %v, want %v", err, ErrAllocation)
	}
}

func TestNewFilled(t *testing.T) {
	fill := RGB888{R: 100, G: 150, B: 200}
	b, err := NewFilled(3, 2, fill, nil)
	if err != nil {
		t.Fatalf("NewFilled() error = %v", err)
	}
	for i, v := range b.Pix() {
		if v != fill {
			t.Errorf("Pix()[%d] = %v, want %v", i, v, fill)
		}
	}
}

func TestFromSlice(t *testing.T) {
	b, err := FromSlice(2, 2, []uint8{1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatalf("FromSlice() error = %v", err)
	}
	if v, _ := b.At(1, 0); v != 3 {
		t.Errorf("At(1, 0) = %d, want 3", v)
	}

	if _, err := FromSlice(2, 2, []uint8{1, 2, 3}, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("FromSlice(short) error = %v, want %v", err, ErrDimensionMismatch)
	}
}

func TestAtSet(t *testing.T) {
	b, _ := New[uint8](4, 3, nil)

	for r := range 3 {
		for c := range 4 {
			if err := b.Set(r, c, uint8(r*10+c)); err != nil {
				t.Fatalf("Set(%d, %d) error = %v", r, c, err)
			}
		}
	}

	// Row-major layout
	want := []uint8{0, 1, 2, 3, 10, 11, 12, 13, 20, 21, 22, 23}
	for i, w := range want {
		got, err := b.Index(i)
		if err != nil || got != w {
			t.Errorf("Index(%d) = %d, %v, want %d", i, got, err, w)
		}
	}

	if v, err := b.At(2, 3); err != nil || v != 23 {
		t.Errorf("At(2, 3) = %d, %v, want 23", v, err)
	}
}

func TestOutOfRange(t *testing.T) {
	b, _ := New[uint8](4, 3, nil)

	tests := []struct {
		name string
		r, c int
	}{
		{"negative row", -1, 0},
		{"negative col", 0, -1},
		{"row past end", 3, 0},
		{"col past end", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.At(tt.r, tt.c); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("At(%d, %d) error = %v, want %v", tt.r, tt.c, err, ErrIndexOutOfRange)
			}
			if err := b.Set(tt.r, tt.c, 9); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("Set(%d, %d) error = %v, want %v", tt.r, tt.c, err, ErrIndexOutOfRange)
			}
		})
	}

	if _, err := b.Index(12); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Index(12) error = %v, want %v", err, ErrIndexOutOfRange)
	}
	if err := b.SetIndex(-1, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetIndex(-1) error = %v, want %v", err, ErrIndexOutOfRange)
	}

	// A wrapped column must not reach into the next row.
	for i, v := range b.Pix() {
		if v != 0 {
			t.Errorf("Pix()[%d] = %d after rejected writes, want 0", i, v)
		}
	}
}

func TestRow(t *testing.T) {
	b, _ := FromSlice(3, 2, []uint8{1, 2, 3, 4, 5, 6}, nil)

	row := b.Row(1)
	if len(row) != 3 || row[0] != 4 || row[2] != 6 {
		t.Errorf("Row(1) = %v, want [4 5 6]", row)
	}
	row[1] = 50
	if v, _ := b.At(1, 1); v != 50 {
		t.Errorf("At(1, 1) = %d after writing through Row, want 50", v)
	}
	if b.Row(-1) != nil || b.Row(2) != nil {
		t.Error("Row() out of range should return nil")
	}
}

func TestEqual(t *testing.T) {
	a, _ := FromSlice(2, 2, []uint8{1, 2, 3, 4}, nil)
	same, _ := FromSlice(2, 2, []uint8{1, 2, 3, 4}, nil)
	diff, _ := FromSlice(2, 2, []uint8{1, 2, 3, 5}, nil)
	transposed, _ := FromSlice(4, 1, []uint8{1, 2, 3, 4}, nil)

	tests := []struct {
		name string
		o    *Gray
		want bool
	}{
		{"identical", same, true},
		{"self", a, true},
		{"different element", diff, false},
		{"same length other shape", transposed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.o); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClone(t *testing.T) {
	a, _ := FromSlice(2, 2, []uint8{1, 2, 3, 4}, nil)
	c, err := a.Clone()
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if !a.Equal(c) {
		t.Fatal("Clone() is not equal to source")
	}
	c.Pix()[0] = 99
	if a.Pix()[0] != 1 {
		t.Error("Clone() shares storage with source")
	}
}

func TestMove(t *testing.T) {
	pool := NewPool("test", 64)
	a, _ := New[uint8](4, 4, pool)
	a.Pix()[5] = 7
	pix := a.Pix()

	m := a.Move()
	if a.Width() != 0 || a.Height() != 0 || a.Len() != 0 {
		t.Errorf("source after Move() = %v, want empty", a)
	}
	if &m.Pix()[0] != &pix[0] || m.Pix()[5] != 7 {
		t.Error("Move() did not transfer the backing slice")
	}

	// Freeing the moved-from buffer must not release the reservation.
	a.Free()
	if pool.Used() != 16 {
		t.Errorf("Used() = %d after freeing moved-from buffer, want 16", pool.Used())
	}
	m.Free()
	if pool.Used() != 0 {
		t.Errorf("Used() = %d after freeing moved-to buffer, want 0", pool.Used())
	}
}

func TestAssign(t *testing.T) {
	pool := NewPool("test", 100)
	dst, _ := New[uint8](2, 2, pool)
	src, _ := FromSlice(3, 3, []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9}, nil)

	if err := dst.Assign(src); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if !dst.Equal(src) {
		t.Error("Assign() result differs from source")
	}
	if pool.Used() != 9 {
		t.Errorf("Used() = %d after reallocating Assign, want 9", pool.Used())
	}

	// Same size copies in place.
	other, _ := NewFilled[uint8](3, 3, 5, nil)
	if err := dst.Assign(other); err != nil {
		t.Fatalf("Assign(same size) error = %v", err)
	}
	if !dst.Equal(other) {
		t.Error("Assign(same size) result differs from source")
	}
}

func TestAssignAllocationFailure(t *testing.T) {
	pool := NewPool("test", 10)
	dst, _ := NewFilled[uint8](2, 2, 3, pool)
	big, _ := New[uint8](4, 4, nil)

	if err := dst.Assign(big); !errors.Is(err, ErrAllocation) {
		t.Fatalf("Assign() error = %v, want %v", err, ErrAllocation)
	}
	if dst.Width() != 2 || dst.Height() != 2 || dst.Pix()[3] != 3 {
		t.Errorf("destination changed after failed Assign(): %v", dst)
	}
	if pool.Used() != 4 {
		t.Errorf("Used() = %d after failed Assign(), want 4", pool.Used())
	}
}

func TestCopyFrom(t *testing.T) {
	dst, _ := New[uint8](2, 2, nil)
	src, _ := NewFilled[uint8](2, 2, 8, nil)
	if err := dst.CopyFrom(src); err != nil || !dst.Equal(src) {
		t.Errorf("CopyFrom() = %v, equal = %v", err, dst.Equal(src))
	}

	wrong, _ := New[uint8](2, 3, nil)
	if err := dst.CopyFrom(wrong); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("CopyFrom(2x3) error = %v, want %v", err, ErrDimensionMismatch)
	}
	if dst.Pix()[0] != 8 {
		t.Error("CopyFrom() modified destination on mismatch")
	}
}

func TestCrop(t *testing.T) {
	b, _ := FromSlice(4, 3, []uint8{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}, nil)

	c, err := b.Crop(1, 1, 2, 2)
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	want, _ := FromSlice(2, 2, []uint8{5, 6, 9, 10}, nil)
	if !c.Equal(want) {
		t.Errorf("Crop(1, 1, 2, 2) = %v, want %v", c.Pix(), want.Pix())
	}

	if _, err := b.Crop(3, 0, 2, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Crop(past right edge) error = %v, want %v", err, ErrIndexOutOfRange)
	}
}

func TestFreeTwice(t *testing.T) {
	pool := NewPool("test", 32)
	b, _ := New[RGB888](2, 2, pool)
	if pool.Used() != 12 {
		t.Fatalf("Used() = %d, want 12", pool.Used())
	}
	b.Free()
	b.Free()
	if pool.Used() != 0 {
		t.Errorf("Used() = %d after double Free(), want 0", pool.Used())
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after Free(), want 0", b.Len())
	}
}

func TestZeroValue(t *testing.T) {
	var b Gray
	if b.Len() != 0 || b.Row(0) != nil {
		t.Error("zero Buffer should be empty")
	}
	src, _ := NewFilled[uint8](2, 1, 4, nil)
	if err := b.Assign(src); err != nil {
		t.Fatalf("Assign() into zero value error = %v", err)
	}
	if !b.Equal(src) {
		t.Error("Assign() into zero value differs from source")
	}
	b.Free()
}

func TestString(t *testing.T) {
	b, _ := New[uint8](320, 240, nil)
	if got, want := b.String(), "pixbuf.Buffer[uint8]{320x240}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
