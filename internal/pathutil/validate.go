// Package pathutil confines user-supplied file paths to a directory tree.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path escapes its allowed tree.
var ErrOutsideRoot = errors.New("path is outside the allowed directory")

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// For example, "/home/user/.intersim/config.yaml" becomes ".../.intersim/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ResolveWithin resolves path against root and returns the absolute,
// symlink-resolved result. Relative paths are taken relative to root. The
// result must lie inside root once symlinks in both are followed; the file
// itself need not exist.
func ResolveWithin(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("path contains null byte")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("cannot resolve root: %w", err)
	}

	resolvedRoot, err := resolveExisting(rootAbs)
	if err != nil {
		return "", err
	}
	resolvedDir, err := resolveExisting(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(abs))

	if !isSubpath(resolved, resolvedRoot) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, RedactPath(abs))
	}
	return resolved, nil
}

// resolveExisting follows symlinks on the deepest existing ancestor of dir
// and re-appends the part that does not exist yet.
func resolveExisting(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath reports whether path is base or lies beneath it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
