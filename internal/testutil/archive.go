// Package testutil provides testing utilities for the ustar package.
// This file contains archive builders for hand-made and interop archives.
package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"time"
)

// BlockSize is the size of one archive block.
const BlockSize = 512

// Raw magic and version fields, eight bytes each.
const (
	MagicUSTAR = "ustar\x0000"
	MagicGNU   = "ustar  \x00"
)

// header holds the raw fields of a hand-built header block.
type header struct {
	name      string
	typeflag  byte
	magic     string
	sizeField string
	size      int64
}

// HeaderOption customizes a hand-built header block.
type HeaderOption func(*header)

// WithTypeflag sets the raw typeflag byte. Defaults to '0'.
func WithTypeflag(flag byte) HeaderOption {
	return func(h *header) {
		h.typeflag = flag
	}
}

// WithMagic sets the raw eight-byte magic and version fields.
// Defaults to MagicUSTAR.
func WithMagic(magic string) HeaderOption {
	return func(h *header) {
		h.magic = magic
	}
}

// WithSizeField writes field verbatim into the twelve-byte size field
// instead of the octal encoding of the content length.
func WithSizeField(field string) HeaderOption {
	return func(h *header) {
		h.sizeField = field
	}
}

// WithDeclaredSize makes the header claim size bytes regardless of the
// content actually appended.
func WithDeclaredSize(size int64) HeaderOption {
	return func(h *header) {
		h.size = size
	}
}

// ArchiveBuilder assembles an archive block by block.
// Nothing is added implicitly: call AddZeroBlocks for the end marker.
type ArchiveBuilder struct {
	buf bytes.Buffer
}

// NewArchiveBuilder creates an empty archive builder.
func NewArchiveBuilder() *ArchiveBuilder {
	return &ArchiveBuilder{}
}

// AddFile appends a header for name followed by content padded to a block
// boundary.
func (b *ArchiveBuilder) AddFile(name string, content []byte, opts ...HeaderOption) *ArchiveBuilder {
	b.buf.Write(HeaderBlock(name, int64(len(content)), opts...))
	b.buf.Write(content)
	if pad := padding(int64(len(content))); pad > 0 {
		b.buf.Write(make([]byte, pad))
	}
	return b
}

// AddHeader appends only a header block.
func (b *ArchiveBuilder) AddHeader(name string, size int64, opts ...HeaderOption) *ArchiveBuilder {
	b.buf.Write(HeaderBlock(name, size, opts...))
	return b
}

// AddZeroBlocks appends n blocks of zeros.
func (b *ArchiveBuilder) AddZeroBlocks(n int) *ArchiveBuilder {
	b.buf.Write(make([]byte, n*BlockSize))
	return b
}

// AddBytes appends raw bytes without padding.
func (b *ArchiveBuilder) AddBytes(data []byte) *ArchiveBuilder {
	b.buf.Write(data)
	return b
}

// Len returns the number of bytes built so far.
func (b *ArchiveBuilder) Len() int {
	return b.buf.Len()
}

// Bytes returns a copy of the archive.
func (b *ArchiveBuilder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// HeaderBlock encodes a single USTAR header block for a regular file.
// The checksum is computed over the final block.
func HeaderBlock(name string, size int64, opts ...HeaderOption) []byte {
	h := &header{
		name:     name,
		typeflag: '0',
		magic:    MagicUSTAR,
		size:     size,
	}
	for _, opt := range opts {
		opt(h)
	}

	block := make([]byte, BlockSize)
	copy(block[0:100], h.name)
	copy(block[100:108], "0000644\x00")
	copy(block[108:116], "0000000\x00")
	copy(block[116:124], "0000000\x00")
	if h.sizeField != "" {
		copy(block[124:136], h.sizeField)
	} else {
		copy(block[124:136], fmt.Sprintf("%011o\x00", h.size))
	}
	copy(block[136:148], "00000000000\x00")
	block[156] = h.typeflag
	copy(block[257:265], h.magic)

	copy(block[148:156], "        ")
	var sum int64
	for _, c := range block {
		sum += int64(c)
	}
	copy(block[148:156], fmt.Sprintf("%06o\x00 ", sum))
	return block
}

// File is one regular file for WriteTar.
type File struct {
	Name    string
	Content []byte
}

// WriteTar encodes files with archive/tar in the given format, ending with
// the standard two zero blocks.
func WriteTar(format tar.Format, files ...File) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.Name,
			Size:     int64(len(f.Content)),
			Mode:     0o644,
			ModTime:  time.Unix(0, 0),
			Format:   format,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("failed to write header for %s: %w", f.Name, err)
		}
		if _, err := tw.Write(f.Content); err != nil {
			return nil, fmt.Errorf("failed to write content for %s: %w", f.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close tar writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Content returns n bytes of a repeating, position-dependent pattern.
func Content(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func padding(size int64) int64 {
	return (BlockSize - size%BlockSize) % BlockSize
}
