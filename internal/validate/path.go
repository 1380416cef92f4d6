// Package validate checks archive entry names before they are written to disk.
// Names that are absolute, climb out of the extraction root, or contain
// control characters are rejected.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EntryPathValidator validates entry names against an extraction root.
type EntryPathValidator struct {
	// Root is the absolute extraction directory.
	Root string
}

// NewEntryPathValidator returns a validator rooted at root. The root is made
// absolute; an error is returned if that fails.
func NewEntryPathValidator(root string) (*EntryPathValidator, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extraction root %s: %w", root, err)
	}
	return &EntryPathValidator{Root: abs}, nil
}

// ValidateName reports whether name is safe to extract.
func (v *EntryPathValidator) ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty path")
	}

	if isAbsolute(name) {
		return fmt.Errorf("absolute path not allowed: %s", name)
	}

	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", name)
		}
	}

	for _, r := range name {
		if r == 0 {
			return fmt.Errorf("NUL byte detected in path: %q", name)
		}
		if r < 32 || r == 127 {
			return fmt.Errorf("control character detected in path: %q (U+%04X)", name, r)
		}
	}

	return nil
}

// Resolve validates name and joins it to the root. The result is guaranteed
// to lie inside the root.
func (v *EntryPathValidator) Resolve(name string) (string, error) {
	if err := v.ValidateName(name); err != nil {
		return "", err
	}

	full := filepath.Join(v.Root, filepath.FromSlash(name))
	if full == v.Root {
		return "", fmt.Errorf("path resolves to extraction root: %s", name)
	}
	if !strings.HasPrefix(full, v.Root+string(os.PathSeparator)) && v.Root != string(os.PathSeparator) {
		return "", fmt.Errorf("path escapes extraction root: %s", name)
	}
	return full, nil
}

// isAbsolute detects absolute paths for the host and for Windows-style
// drive letters and UNC prefixes, which an archive may carry regardless of host.
func isAbsolute(name string) bool {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return true
	}
	if len(name) >= 3 && name[1] == ':' && (name[2] == '\\' || name[2] == '/') {
		drive := name[0]
		if (drive >= 'A' && drive <= 'Z') || (drive >= 'a' && drive <= 'z') {
			return true
		}
	}
	return strings.HasPrefix(name, `\\`)
}
