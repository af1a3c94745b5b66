package pixbuf

import (
	"fmt"
)

// Allocator decides whether a buffer of size bytes may be allocated.
//
// On success it returns a release function that gives the bytes back. The
// release function is called at most once per reservation.
type Allocator interface {
	Reserve(size int) (release func(), err error)
}

// Stat is a snapshot of an accounting pool.
type Stat struct {
	Name     string
	Capacity int
	Used     int
	Peak     int
}

// Free returns the number of bytes still available.
func (s Stat) Free() int {
	return s.Capacity - s.Used
}

func (s Stat) String() string {
	return fmt.Sprintf("%s -- Total: %d; Free: %d; Used: %d; Peak: %d", s.Name, s.Capacity, s.Free(), s.Used, s.Peak)
}

type heap struct{}

// Heap is the default allocator. It never refuses a reservation and leaves
// memory management to the Go runtime.
var Heap Allocator = heap{}

func (heap) Reserve(size int) (func(), error) {
	return func() {}, nil
}

func (heap) String() string {
	return "heap"
}

// Pool is a fixed-capacity accounting allocator.
//
// It does not hold memory itself. It tracks how much of a memory bank the
// live buffers would use and refuses reservations that do not fit.
type Pool struct {
	name     string
	capacity int
	used     int
	peak     int
}

// NewPool creates a pool named name that accepts up to capacity bytes.
func NewPool(name string, capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{name: name, capacity: capacity}
}

// Reserve implements Allocator.
func (p *Pool) Reserve(size int) (func(), error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %s: negative size %d", ErrAllocation, p.name, size)
	}
	if size > p.capacity-p.used {
		return nil, fmt.Errorf("%w: %s: need %d bytes, %d of %d free", ErrAllocation, p.name, size, p.capacity-p.used, p.capacity)
	}
	p.used += size
	if p.used > p.peak {
		p.peak = p.used
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		p.used -= size
	}, nil
}

// Capacity returns the total number of bytes the pool accepts.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Used returns the number of bytes currently reserved.
func (p *Pool) Used() int {
	return p.used
}

// Available returns the number of bytes that can still be reserved.
func (p *Pool) Available() int {
	return p.capacity - p.used
}

// Stat returns a snapshot of the pool.
func (p *Pool) Stat() Stat {
	return Stat{Name: p.name, Capacity: p.capacity, Used: p.used, Peak: p.peak}
}

func (p *Pool) String() string {
	return fmt.Sprintf("pixbuf.Pool{%s %d/%d}", p.name, p.used, p.capacity)
}

// Tiered routes reservations between a small fast pool and a large slow
// pool, like internal DRAM and external PSRAM on a camera board.
//
// Requests of at least LargeThreshold bytes try Slow first, smaller ones try
// Fast first. Either falls back to the other pool when the preferred one is
// full or nil.
type Tiered struct {
	Fast           *Pool
	Slow           *Pool
	LargeThreshold int
}

// Reserve implements Allocator.
func (t *Tiered) Reserve(size int) (func(), error) {
	first, second := t.Fast, t.Slow
	if size >= t.LargeThreshold {
		first, second = t.Slow, t.Fast
	}

	var firstErr error
	if first != nil {
		release, err := first.Reserve(size)
		if err == nil {
			return release, nil
		}
		firstErr = err
	}
	if second != nil {
		release, err := second.Reserve(size)
		if err == nil {
			return release, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("%w: no pool configured", ErrAllocation)
	}
	return nil, firstErr
}

// Stats returns a snapshot of both tiers.
func (t *Tiered) Stats() []Stat {
	var stats []Stat
	if t.Fast != nil {
		stats = append(stats, t.Fast.Stat())
	}
	if t.Slow != nil {
		stats = append(stats, t.Slow.Stat())
	}
	return stats
}

func (t *Tiered) String() string {
	return fmt.Sprintf("pixbuf.Tiered{fast=%v slow=%v large>=%d}", t.Fast, t.Slow, t.LargeThreshold)
}

// Usage returns the accounting snapshot of a, or nil when a does not keep
// any (for example Heap).
func Usage(a Allocator) []Stat {
	switch v := a.(type) {
	case interface{ Stats() []Stat }:
		return v.Stats()
	case interface{ Stat() Stat }:
		return []Stat{v.Stat()}
	}
	return nil
}
