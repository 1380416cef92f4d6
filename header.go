package ustar

import (
	"bytes"

	platformerrors "github.com/jmgilman/go/errors"
)

// BlockSize is the size of every header and content block in an archive.
const BlockSize = 512

// Field layout of a USTAR header block.
const (
	nameLen     = 100
	modeLen     = 8
	uidLen      = 8
	gidLen      = 8
	sizeLen     = 12
	mtimeLen    = 12
	chksumLen   = 8
	typeflagLen = 1
	linknameLen = 100
	magicLen    = 6
	versionLen  = 2

	namePos     = 0
	modePos     = namePos + nameLen
	uidPos      = modePos + modeLen
	gidPos      = uidPos + uidLen
	sizePos     = gidPos + gidLen
	mtimePos    = sizePos + sizeLen
	chksumPos   = mtimePos + mtimeLen
	typeflagPos = chksumPos + chksumLen
	linknamePos = typeflagPos + typeflagLen
	magicPos    = linknamePos + linknameLen
	versionPos  = magicPos + magicLen

	// maxSizeDigits bounds the octal size field; the twelfth byte is reserved
	// for the terminator.
	maxSizeDigits = sizeLen - 1
)

// Typeflags accepted as regular files.
const (
	TypeRegA byte = 0
	TypeReg  byte = '0'
)

var (
	magicUSTAR   = [magicLen]byte{'u', 's', 't', 'a', 'r', 0}
	versionUSTAR = [versionLen]byte{'0', '0'}
	magicGNU     = [magicLen + 1]byte{'u', 's', 't', 'a', 'r', ' ', ' '}
)

// Format identifies which magic tag a header carried.
type Format int

const (
	// FormatUnknown is the zero value and never returned by Decode.
	FormatUnknown Format = iota
	// FormatUSTAR is POSIX "ustar\x00" with version "00".
	FormatUSTAR
	// FormatGNU is the legacy "ustar  " tag written by GNU tar.
	FormatGNU
)

// String returns a string representation of the Format.
func (f Format) String() string {
	switch f {
	case FormatUSTAR:
		return "ustar"
	case FormatGNU:
		return "gnu"
	default:
		return "unknown"
	}
}

// Header is a decoded regular-file header.
type Header struct {
	// Name is the entry path, taken verbatim up to the first NUL.
	// The prefix field is not prepended.
	Name string

	// Size is the number of content bytes following the header.
	Size int64

	// Typeflag is TypeRegA or TypeReg.
	Typeflag byte

	// Format is the magic tag the header carried.
	Format Format

	// Magic and Version are the raw format tag fields.
	Magic   [magicLen]byte
	Version [versionLen]byte
}

// IsZeroBlock reports whether every byte of block is zero.
func IsZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

// Decode turns one header block into a Header.
//
// A block that is not BlockSize bytes long returns CodeInvalidHeader wrapping
// ErrShortBlock. Fields are checked in order: magic, typeflag, size. A bad magic returns
// CodeInvalidHeader wrapping ErrBadMagic; a non-regular typeflag returns
// CodeUnsupportedType wrapping *UnsupportedTypeError; a malformed size returns
// CodeInvalidHeader wrapping ErrInvalidSize. The checksum is not verified.
//
// Callers should test for a zero block with IsZeroBlock before decoding.
func Decode(block []byte) (*Header, error) {
	if len(block) != BlockSize {
		return nil, platformerrors.Wrapf(ErrShortBlock, CodeInvalidHeader,
			"header block is %d bytes, want %d", len(block), BlockSize)
	}

	hdr := &Header{}
	copy(hdr.Magic[:], block[magicPos:magicPos+magicLen])
	copy(hdr.Version[:], block[versionPos:versionPos+versionLen])

	format, ok := parseFormat(block)
	if !ok {
		return nil, platformerrors.Wrapf(ErrBadMagic, CodeInvalidHeader,
			"unrecognized magic %q", block[magicPos:versionPos+versionLen])
	}
	hdr.Format = format

	hdr.Typeflag = block[typeflagPos]
	if hdr.Typeflag != TypeRegA && hdr.Typeflag != TypeReg {
		return nil, platformerrors.WrapWithContext(&UnsupportedTypeError{Typeflag: hdr.Typeflag},
			CodeUnsupportedType, "unsupported entry type", map[string]interface{}{
				"typeflag": int(hdr.Typeflag),
			})
	}

	size, err := parseOctal(block[sizePos : sizePos+sizeLen])
	if err != nil {
		return nil, platformerrors.Wrapf(err, CodeInvalidHeader,
			"size field %q", block[sizePos:sizePos+sizeLen])
	}
	hdr.Size = size

	hdr.Name = cString(block[namePos : namePos+nameLen])
	return hdr, nil
}

// parseFormat checks the magic and version fields.
func parseFormat(block []byte) (Format, bool) {
	if bytes.Equal(block[magicPos:magicPos+magicLen], magicUSTAR[:]) &&
		bytes.Equal(block[versionPos:versionPos+versionLen], versionUSTAR[:]) {
		return FormatUSTAR, true
	}
	if bytes.Equal(block[magicPos:magicPos+len(magicGNU)], magicGNU[:]) {
		return FormatGNU, true
	}
	return FormatUnknown, false
}

// parseOctal decodes a NUL- or space-terminated octal field. Leading spaces
// are skipped. At least one and at most maxSizeDigits digits are accepted.
func parseOctal(field []byte) (int64, error) {
	i := 0
	for i < len(field) && field[i] == ' ' {
		i++
	}

	var n int64
	digits := 0
	for ; i < len(field); i++ {
		c := field[i]
		if c == 0 || c == ' ' {
			break
		}
		if c < '0' || c > '7' {
			return 0, ErrInvalidSize
		}
		digits++
		if digits > maxSizeDigits {
			return 0, ErrInvalidSize
		}
		n = n<<3 | int64(c-'0')
	}
	if digits == 0 {
		return 0, ErrInvalidSize
	}
	return n, nil
}

// cString returns field up to its first NUL.
func cString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}
