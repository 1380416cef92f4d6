// This file contains error codes and error types for archive traversal.

package ustar

import (
	"errors"
	"fmt"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
)

// Error codes for archive traversal failures. Every error returned by this
// package is a platformerrors.PlatformError carrying one of these codes, or
// platformerrors.CodeNotFound for unmatched selections.
const (
	// CodeUsage indicates the configuration is incomplete or contradictory.
	// No I/O has been attempted when this code is returned.
	CodeUsage platformerrors.ErrorCode = "USAGE_ERROR"

	// CodeArchiveOpen indicates the archive could not be opened.
	CodeArchiveOpen platformerrors.ErrorCode = "ARCHIVE_OPEN_FAILED"

	// CodeInvalidArchive indicates the first block of the archive is not a USTAR header.
	CodeInvalidArchive platformerrors.ErrorCode = "INVALID_ARCHIVE"

	// CodeInvalidHeader indicates a header after the first one failed to decode.
	CodeInvalidHeader platformerrors.ErrorCode = "INVALID_HEADER"

	// CodeUnexpectedEOF indicates the archive ended inside a header, content or padding.
	CodeUnexpectedEOF platformerrors.ErrorCode = "UNEXPECTED_EOF"

	// CodeUnsupportedType indicates an entry that is not a regular file.
	CodeUnsupportedType platformerrors.ErrorCode = "UNSUPPORTED_TYPE"

	// CodeSourceIO indicates a read failure on the archive that is not a clean EOF.
	CodeSourceIO platformerrors.ErrorCode = "SOURCE_IO_ERROR"

	// CodeSinkIO indicates a failure creating or writing an extracted file.
	CodeSinkIO platformerrors.ErrorCode = "SINK_IO_ERROR"

	// CodeSinkClose indicates an extracted file failed to close.
	// The file contents may be incomplete.
	CodeSinkClose platformerrors.ErrorCode = "SINK_CLOSE_FAILED"
)

// Sentinel errors wrapped by the platform errors above.
var (
	// ErrBadMagic indicates the magic and version fields match neither
	// POSIX ustar nor the GNU "ustar  " tag.
	ErrBadMagic = errors.New("bad magic")

	// ErrInvalidSize indicates the size field is not a valid octal number
	// or does not fit in eleven octal digits.
	ErrInvalidSize = errors.New("invalid size field")

	// ErrShortBlock indicates a header block that is not BlockSize bytes long.
	ErrShortBlock = errors.New("short header block")

	// ErrUnsafePath indicates an entry name would be written outside the
	// extraction root.
	ErrUnsafePath = errors.New("unsafe extraction path")
)

// UnsupportedTypeError reports an entry whose typeflag is not a regular file.
type UnsupportedTypeError struct {
	// Typeflag is the offending typeflag byte.
	Typeflag byte
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported header type: %d", e.Typeflag)
}

// NotFoundError lists every requested name that no archive entry matched.
type NotFoundError struct {
	// Names are the unmatched names in the order they were requested.
	Names []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found in archive: %s", strings.Join(e.Names, ", "))
}

// CodeOf returns the error code carried by err, or platformerrors.CodeUnknown
// if err is not a platform error.
func CodeOf(err error) platformerrors.ErrorCode {
	var perr platformerrors.PlatformError
	if errors.As(err, &perr) {
		return perr.Code()
	}
	return platformerrors.CodeUnknown
}

// offsetError wraps err with code and records the archive offset it occurred at.
func offsetError(err error, code platformerrors.ErrorCode, message string, offset int64) error {
	return platformerrors.WrapWithContext(err, code, message, map[string]interface{}{
		"offset": offset,
	})
}

// entryError wraps err with code and records the entry name it occurred on.
func entryError(err error, code platformerrors.ErrorCode, message, name string) error {
	return platformerrors.WrapWithContext(err, code, message, map[string]interface{}{
		"name": name,
	})
}
