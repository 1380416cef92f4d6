package ustar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jmgilman/go/fs/core"

	"github.com/jmgilman/go/ustar/internal/validate"
)

// Sink receives the content of extracted entries.
//
// Open is called once per extracted entry; the traversal writes exactly the
// entry's size in bytes to the returned writer and then closes it. Open and
// Write failures are reported as CodeSinkIO, Close failures as CodeSinkClose.
type Sink interface {
	Open(name string) (io.WriteCloser, error)
}

// FSSink extracts entries into a directory on a core.FS.
type FSSink struct {
	fs    core.FS
	paths *validate.EntryPathValidator
}

// NewFSSink returns a sink that writes entries below root on fsys.
// An empty root means the current directory.
func NewFSSink(fsys core.FS, root string) (*FSSink, error) {
	paths, err := validate.NewEntryPathValidator(root)
	if err != nil {
		return nil, err
	}
	return &FSSink{fs: fsys, paths: paths}, nil
}

// Root returns the absolute extraction directory.
func (s *FSSink) Root() string {
	return s.paths.Root
}

// Open creates or truncates the file for name, creating parent directories
// as needed. Names that would land outside the root wrap ErrUnsafePath.
func (s *FSSink) Open(name string) (io.WriteCloser, error) {
	fullPath, err := s.paths.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", fullPath, err)
	}

	file, err := s.fs.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	return file, nil
}
