// Package workspace confines filesystem and process access to a single
// workspace root, the sandboxing primitive every tool in pkg/tools is
// built on.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyPath is returned by SafeJoin when rel is empty.
var ErrEmptyPath = errors.New("workspace: empty path")

// ErrEscapesRoot is returned by SafeJoin when rel resolves outside root.
var ErrEscapesRoot = errors.New("workspace: path escapes workspace root")

// SafeJoin resolves rel (which may be absolute or relative) against root
// and rejects the result if, after normalization and symlink resolution,
// it would lie outside root. root itself is accepted.
func SafeJoin(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", ErrEmptyPath
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve root: %w", err)
	}
	canonicalRoot, err := canonicalize(absRoot)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve root: %w", err)
	}

	var candidate string
	if filepath.IsAbs(rel) {
		candidate = filepath.Clean(rel)
	} else {
		candidate = filepath.Join(absRoot, rel)
	}

	if !withinRoot(canonicalRoot, candidate) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, rel)
	}

	// Resolve symlinks on the parent chain that actually exist on disk; a
	// path that doesn't exist yet (e.g. a file about to be written) is not
	// an error, but any existing ancestor must still resolve inside root.
	resolved, err := resolveExistingAncestor(candidate)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve path: %w", err)
	}
	if !withinRoot(canonicalRoot, resolved) {
		return "", fmt.Errorf("%w: %q (symlink escape)", ErrEscapesRoot, rel)
	}

	return candidate, nil
}

// canonicalize resolves symlinks for a path that must already exist
// (the workspace root itself); falls back to the cleaned absolute path
// if the root does not exist yet.
func canonicalize(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(p), nil
		}
		return "", err
	}
	return resolved, nil
}

// resolveExistingAncestor walks up from candidate until it finds a path
// that exists, resolves symlinks on that ancestor, and reattaches the
// remaining (non-existent) suffix.
func resolveExistingAncestor(candidate string) (string, error) {
	clean := filepath.Clean(candidate)
	suffix := ""
	cur := clean
	for {
		_, err := os.Lstat(cur)
		if err == nil {
			// Resolve every link on the path, not only one at cur itself,
			// so an existing directory that links outside root is caught.
			target, rerr := filepath.EvalSymlinks(cur)
			if rerr != nil {
				return "", rerr
			}
			cur = target
			if suffix == "" {
				return cur, nil
			}
			return filepath.Join(cur, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Reached filesystem root without finding an existing ancestor.
			return clean, nil
		}
		base := filepath.Base(cur)
		if suffix == "" {
			suffix = base
		} else {
			suffix = filepath.Join(base, suffix)
		}
		cur = parent
	}
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
