package ustar

import (
	"errors"
	"io"
)

// Cursor is a sequential, block-granular reader over an archive stream.
//
// End-of-stream probing is done with a one-byte lookahead held by the cursor,
// so the underlying reader never has to seek backwards and non-seekable
// streams are supported.
type Cursor struct {
	r      io.Reader
	offset int64

	peek    [1]byte
	hasPeek bool
	eof     bool

	block [BlockSize]byte
}

// NewCursor returns a Cursor positioned at the start of r.
func NewCursor(r io.Reader) *Cursor {
	return &Cursor{r: r}
}

// Offset returns the number of archive bytes consumed so far.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// AtEOF reports whether the stream has no bytes left, without consuming any.
func (c *Cursor) AtEOF() (bool, error) {
	if c.hasPeek {
		return false, nil
	}
	if c.eof {
		return true, nil
	}
	_, err := io.ReadFull(c.r, c.peek[:])
	switch {
	case err == nil:
		c.hasPeek = true
		return false, nil
	case errors.Is(err, io.EOF):
		c.eof = true
		return true, nil
	default:
		return false, offsetError(err, CodeSourceIO, "failed to probe archive", c.offset)
	}
}

// Read reads up to len(p) bytes, serving the lookahead byte first.
// It returns io.EOF once the stream is exhausted.
func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	if c.hasPeek {
		p[0] = c.peek[0]
		c.hasPeek = false
		n = 1
		if len(p) == 1 {
			c.offset++
			return n, nil
		}
	}
	if c.eof {
		c.offset += int64(n)
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	m, err := c.r.Read(p[n:])
	n += m
	c.offset += int64(n)
	if errors.Is(err, io.EOF) {
		c.eof = true
		if n > 0 {
			err = nil
		}
	}
	return n, err
}

// ReadFull fills p from the archive. A short read returns CodeUnexpectedEOF.
func (c *Cursor) ReadFull(p []byte) error {
	start := c.offset
	if _, err := io.ReadFull(c, p); err != nil {
		return c.readError(err, start)
	}
	return nil
}

// ReadBlock reads exactly one block. The returned slice is reused by the
// next call to ReadBlock.
func (c *Cursor) ReadBlock() ([]byte, error) {
	if err := c.ReadFull(c.block[:]); err != nil {
		return nil, err
	}
	return c.block[:], nil
}

// Skip advances n bytes without returning them.
func (c *Cursor) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	start := c.offset
	if _, err := io.CopyN(io.Discard, c, n); err != nil {
		return c.readError(err, start)
	}
	return nil
}

// Align skips to the next block boundary.
func (c *Cursor) Align() error {
	return c.Skip(padding(c.offset))
}

// readError maps a failed read that started at start to a platform error.
func (c *Cursor) readError(err error, start int64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return offsetError(io.ErrUnexpectedEOF, CodeUnexpectedEOF, "unexpected EOF in archive", start)
	}
	return offsetError(err, CodeSourceIO, "failed to read archive", start)
}

// padding returns the number of bytes from offset to the next block boundary.
func padding(offset int64) int64 {
	return (BlockSize - offset%BlockSize) % BlockSize
}
