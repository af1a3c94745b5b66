// Package printer hands packed bi-level buffers to a thermal printer link.
//
// Only the raw raster bytes are sent. Command framing is left to the
// printer driver sitting behind the conn.Conn.
package printer

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3"

	"github.com/flavioheleno/polarpics/bitbuf"
)

// DefaultChunkSize is used when neither Opts nor the connection limit the
// transaction size.
const DefaultChunkSize = 4096

// Opts is the configuration for a Raw printer.
type Opts struct {
	// Invert sends on cells as 0 bits. Most thermal heads burn a dot for a
	// 1 bit, while on cells are white.
	Invert bool
	// ChunkSize caps the bytes per transaction. 0 means the connection limit
	// if it has one, else DefaultChunkSize.
	ChunkSize int
}

// Raw writes bit buffers to a connection.
type Raw struct {
	c     conn.Conn
	opts  Opts
	chunk int
}

// New returns a Raw printer on c. A nil opts uses the defaults.
func New(c conn.Conn, opts *Opts) (*Raw, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if opts.ChunkSize < 0 {
		return nil, errors.New("printer: chunk size must not be negative")
	}
	chunk := opts.ChunkSize
	if l, ok := c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 && (chunk == 0 || m < chunk) {
			chunk = m
		}
	}
	if chunk == 0 {
		chunk = DefaultChunkSize
	}
	return &Raw{c: c, opts: *opts, chunk: chunk}, nil
}

func (p *Raw) String() string {
	return fmt.Sprintf("printer.Raw{%s}", p.c)
}

// ChunkSize returns the effective transaction size.
func (p *Raw) ChunkSize() int {
	return p.chunk
}

// Print sends the packed bytes of b. b is never modified; Invert works on
// a copy.
func (p *Raw) Print(b *bitbuf.Buffer) error {
	if p.opts.Invert {
		inv, err := b.Clone()
		if err != nil {
			return fmt.Errorf("printer: failed to copy buffer: %w", err)
		}
		defer inv.Free()
		inv.Invert()
		b = inv
	}
	data := b.Bytes()
	for sent := 0; sent < len(data); {
		n := min(p.chunk, len(data)-sent)
		if err := p.c.Tx(data[sent:sent+n], nil); err != nil {
			return fmt.Errorf("printer: failed to send bytes %d-%d: %w", sent, sent+n, err)
		}
		sent += n
	}
	return nil
}

// StreamConn is a write-only conn.Conn over an io.Writer such as a serial
// port.
type StreamConn struct {
	W    io.Writer
	Name string
	// Max is reported through conn.Limits. 0 means no limit.
	Max int
}

// String implements conn.Resource.
func (s *StreamConn) String() string {
	if s.Name == "" {
		return "stream"
	}
	return s.Name
}

// Tx implements conn.Conn. Reads are not supported.
func (s *StreamConn) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("printer: stream is write only")
	}
	for len(w) > 0 {
		n, err := s.W.Write(w)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		w = w[n:]
	}
	return nil
}

// Duplex implements conn.Conn.
func (s *StreamConn) Duplex() conn.Duplex {
	return conn.Half
}

// MaxTxSize implements conn.Limits.
func (s *StreamConn) MaxTxSize() int {
	return s.Max
}

var (
	_ conn.Conn   = &StreamConn{}
	_ conn.Limits = &StreamConn{}
)
