package tools

import (
	"os"
	"path/filepath"
	"strings"
)

// skipDirs names directories excluded from every workspace walk: repo
// metadata, build outputs, node-module-style dependency trees, and
// virtual-env directories, per §4.3/§4.5's default skip set.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
}

// maxWalkBinaryBytes bounds the size at which a regular file is treated
// as a large binary and excluded from repo_tree-style walks.
const maxWalkBinaryBytes = 5 * 1024 * 1024

func shouldSkipDir(name string) bool {
	if skipDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "."
}

// walkWorkspace walks root, calling fn with each regular file's
// workspace-relative path, honoring the default skip set and omitting
// large binaries. Stops early if fn returns false.
func walkWorkspace(root string, fn func(relPath string, info os.FileInfo) bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if shouldSkipDir(base) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(base, ".") {
			return nil
		}
		if info.Size() > maxWalkBinaryBytes {
			return nil
		}
		if !fn(filepath.ToSlash(rel), info) {
			return filepath.SkipAll
		}
		return nil
	})
}
