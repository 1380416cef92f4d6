package ustar

import (
	"context"
	"errors"
	"fmt"
	"io"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/opencontainers/go-digest"

	"github.com/jmgilman/go/ustar/internal/logging"
)

// Entry records what happened to one archive entry.
type Entry struct {
	// Name is the entry name from the header.
	Name string
	// Size is the content length in bytes.
	Size int64
	// Offset is the byte offset of the entry's header block.
	Offset int64
	// Selected reports whether the entry matched the requested names.
	Selected bool
	// Extracted reports whether the entry was written to the sink.
	Extracted bool
	// Digest is the canonical digest of the extracted content.
	// Empty unless Extracted is true.
	Digest digest.Digest
}

// Warning is a recoverable anomaly found while traversing.
type Warning struct {
	// Offset is the byte offset of the offending block.
	Offset int64
	// Block is the 1-based block number of the offending block.
	Block int64
	// Message is a tar-style description.
	Message string
}

// Result is the outcome of one traversal. It is returned alongside any error
// and holds every entry processed before the failure.
type Result struct {
	Entries  []Entry
	Warnings []Warning
}

// flusher is implemented by buffered listing writers.
type flusher interface {
	Flush() error
}

// traversal holds the state of one pass over an archive.
type traversal struct {
	cfg       Config
	cursor    *Cursor
	selection *Selection
	sink      Sink
	stdout    io.Writer
	logger    *logging.Logger
	result    *Result
	buf       [BlockSize]byte
}

// Traverse performs one pass over the archive read from r.
//
// In list mode the name of every selected entry is written to the configured
// stdout. In extract mode every selected entry is written to the sink, and its
// name is also printed when cfg is verbose. Unselected entries are skipped.
//
// The pass ends successfully at end of stream or at the end-of-archive marker.
// A single zero block followed by end of stream, or by a non-zero block, is
// recorded as a Warning and does not fail the pass. Any other anomaly ends the
// pass with an error. If the pass succeeds but some requested names were never
// matched, the error is CodeNotFound wrapping *NotFoundError.
func Traverse(ctx context.Context, r io.Reader, cfg Config, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	return traverse(ctx, r, cfg, o)
}

func traverse(ctx context.Context, r io.Reader, cfg Config, o *Options) (*Result, error) {
	op := logging.OpList
	if cfg.Mode() == ModeExtract {
		op = logging.OpExtract
	}

	t := &traversal{
		cfg:       cfg,
		cursor:    NewCursor(r),
		selection: NewSelection(cfg.names),
		sink:      o.Sink,
		stdout:    o.Stdout,
		logger:    logging.New(o.Logger).WithOperation(op).WithArchive(cfg.Archive()),
		result:    &Result{},
	}

	if cfg.Mode() == ModeExtract && t.sink == nil {
		sink, err := NewFSSink(o.FS, cfg.OutputDir())
		if err != nil {
			return t.result, platformerrors.WrapWithContext(err, CodeSinkIO,
				"failed to resolve output directory", map[string]interface{}{
					"path": cfg.OutputDir(),
				})
		}
		t.sink = sink
	}

	if err := t.run(ctx); err != nil {
		t.logger.Debug(ctx, "traversal stopped", "error", err, "offset", t.cursor.Offset())
		return t.result, err
	}

	if missing := t.selection.Missing(); len(missing) > 0 {
		return t.result, platformerrors.Wrap(&NotFoundError{Names: missing},
			platformerrors.CodeNotFound, "requested names not found in archive")
	}

	t.logger.Info(ctx, "traversal complete",
		"entries", len(t.result.Entries),
		"warnings", len(t.result.Warnings))
	return t.result, nil
}

// run loops until the archive ends or an entry fails.
func (t *traversal) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return offsetError(err, CodeSourceIO, "traversal canceled", t.cursor.Offset())
		}

		offset := t.cursor.Offset()
		eof, err := t.cursor.AtEOF()
		if err != nil {
			return err
		}
		if eof {
			return nil
		}

		block, err := t.cursor.ReadBlock()
		if err != nil {
			return err
		}

		if IsZeroBlock(block) {
			return t.finish(ctx, offset)
		}

		hdr, err := Decode(block)
		if err != nil {
			if offset == 0 && errors.Is(err, ErrBadMagic) {
				return offsetError(err, CodeInvalidArchive, "this does not look like a tar archive", offset)
			}
			return platformerrors.WithContextMap(err, map[string]interface{}{"offset": offset})
		}

		if err := t.entry(ctx, hdr, offset); err != nil {
			return err
		}
	}
}

// finish handles the end-of-archive marker after a zero block at offset.
func (t *traversal) finish(ctx context.Context, offset int64) error {
	eof, err := t.cursor.AtEOF()
	if err != nil {
		return err
	}
	if !eof {
		next, err := t.cursor.ReadBlock()
		if err != nil {
			return err
		}
		if IsZeroBlock(next) {
			return nil
		}
	}

	block := offset/BlockSize + 1
	t.result.Warnings = append(t.result.Warnings, Warning{
		Offset:  offset,
		Block:   block,
		Message: fmt.Sprintf("A lone zero block at %d", block),
	})
	logging.LogLoneZeroBlock(ctx, t.logger, offset, block)
	return nil
}

// entry processes one decoded header and leaves the cursor on the next
// block boundary.
func (t *traversal) entry(ctx context.Context, hdr *Header, offset int64) error {
	rec := Entry{
		Name:     hdr.Name,
		Size:     hdr.Size,
		Offset:   offset,
		Selected: t.selection.Match(hdr.Name),
	}

	if rec.Selected && t.cfg.printNames() {
		if err := t.print(hdr.Name); err != nil {
			t.result.Entries = append(t.result.Entries, rec)
			return err
		}
	}

	switch {
	case rec.Selected && t.cfg.Mode() == ModeExtract:
		dgst, err := t.extract(hdr)
		if err != nil {
			t.result.Entries = append(t.result.Entries, rec)
			return err
		}
		rec.Extracted = true
		rec.Digest = dgst
		logging.LogEntry(ctx, t.logger, logging.ActionExtracted, hdr.Name, offset, hdr.Size,
			"digest", dgst.String())
	default:
		if err := t.cursor.Skip(hdr.Size); err != nil {
			t.result.Entries = append(t.result.Entries, rec)
			return err
		}
		action := logging.ActionSkipped
		if rec.Selected {
			action = logging.ActionListed
		}
		logging.LogEntry(ctx, t.logger, action, hdr.Name, offset, hdr.Size)
	}

	t.result.Entries = append(t.result.Entries, rec)
	return t.cursor.Align()
}

// print writes name to stdout and flushes buffered writers.
func (t *traversal) print(name string) error {
	if _, err := io.WriteString(t.stdout, name+"\n"); err != nil {
		return entryError(err, CodeSinkIO, "failed to write entry name", name)
	}
	if f, ok := t.stdout.(flusher); ok {
		if err := f.Flush(); err != nil {
			return entryError(err, CodeSinkIO, "failed to flush entry name", name)
		}
	}
	return nil
}

// extract streams the content of hdr to the sink one block at a time and
// returns the digest of the bytes written.
func (t *traversal) extract(hdr *Header) (digest.Digest, error) {
	w, err := t.sink.Open(hdr.Name)
	if err != nil {
		return "", entryError(err, CodeSinkIO, "failed to create file", hdr.Name)
	}

	digester := digest.Canonical.Digester()
	remaining := hdr.Size
	for remaining > 0 {
		chunk := t.buf[:min(remaining, BlockSize)]
		if err := t.cursor.ReadFull(chunk); err != nil {
			_ = w.Close()
			return "", err
		}
		if _, err := w.Write(chunk); err != nil {
			_ = w.Close()
			return "", entryError(err, CodeSinkIO, "failed to write file", hdr.Name)
		}
		// hash.Hash writes never fail
		_, _ = digester.Hash().Write(chunk)
		remaining -= int64(len(chunk))
	}

	if err := w.Close(); err != nil {
		return "", entryError(err, CodeSinkClose, "failed to close file, possible data loss", hdr.Name)
	}
	return digester.Digest(), nil
}
