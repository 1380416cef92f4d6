// Package ustar lists and extracts regular files from USTAR archives.
//
// An archive is read front to back exactly once, one 512-byte block at a time.
// Key features:
//   - POSIX "ustar" and GNU "ustar  " headers for regular files
//   - Selection of entries by exact name, with unmatched names reported
//   - Streaming extraction through a core.FS with path traversal protection
//   - Non-seekable sources such as pipes and standard input
//   - Tar-compatible handling of a missing or single end-of-archive zero block
//
// Basic usage:
//
//	cfg, err := ustar.NewConfig("bundle.tar", ustar.ModeList)
//	if err != nil {
//	    return err
//	}
//
//	// Print every entry name to stdout
//	result, err := ustar.Run(ctx, cfg)
//
//	// Extract two entries into ./out
//	cfg, err = ustar.NewConfig("bundle.tar", ustar.ModeExtract,
//	    ustar.WithNames("a.txt", "b.txt"),
//	    ustar.WithOutputDir("out"),
//	)
//	result, err = ustar.Run(ctx, cfg, ustar.WithLogger(slog.Default()))
//
// Every error is a platform error from github.com/jmgilman/go/errors; use
// CodeOf to classify it.
package ustar
