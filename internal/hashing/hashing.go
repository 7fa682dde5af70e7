// Package hashing provides the content digests behind render staleness checks.
package hashing

import (
	_ "crypto/sha256"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Missing stands in for the digest of a file that does not exist or cannot be read.
const Missing = "missing"

// File returns the hex SHA-256 of the file at path, or Missing.
func File(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return Missing
	}
	defer f.Close()
	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return Missing
	}
	return d.Encoded()
}

// Combine hashes the colon-joined parts. Order matters.
func Combine(parts []string) string {
	return digest.Canonical.FromString(strings.Join(parts, ":")).Encoded()
}

// Files digests each path in order.
func Files(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, File(p))
	}
	return out
}

// CollectFiles returns every non-directory entry under dir, recursively,
// sorted lexicographically by full path. Symlinks are kept unless they resolve
// to a directory; a dangling link is kept and digests as Missing. A missing
// dir yields nothing.
func CollectFiles(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if path == dir {
					return filepath.SkipAll
				}
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
