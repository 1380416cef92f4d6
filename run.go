package ustar

import (
	"context"
	"path/filepath"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/jmgilman/go/ustar/internal/logging"
)

// Run opens the archive named by cfg, traverses it, and closes it.
//
// The archive is opened through the configured core.FS, or read from the
// configured stdin when its path is StdinArchive. An open failure returns
// CodeArchiveOpen before any entry is read. A failure closing the archive
// after an otherwise successful pass returns CodeSourceIO.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	o := newOptions(opts)

	if cfg.Archive() == StdinArchive {
		return traverse(ctx, o.Stdin, cfg, o)
	}

	path, err := filepath.Abs(cfg.Archive())
	if err != nil {
		return nil, archiveOpenError(err, cfg.Archive())
	}

	f, err := o.FS.Open(path)
	if err != nil {
		return nil, archiveOpenError(err, cfg.Archive())
	}

	result, err := traverse(ctx, f, cfg, o)
	if cerr := f.Close(); cerr != nil {
		if err == nil {
			return result, platformerrors.WrapWithContext(cerr, CodeSourceIO,
				"failed to close archive", map[string]interface{}{
					"path": cfg.Archive(),
				})
		}
		logging.New(o.Logger).Warn(ctx, "failed to close archive",
			"archive", cfg.Archive(),
			"error", cerr)
	}
	return result, err
}

func archiveOpenError(err error, path string) error {
	return platformerrors.WrapWithContext(err, CodeArchiveOpen, "cannot open archive",
		map[string]interface{}{
			"path": path,
		})
}
