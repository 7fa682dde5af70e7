package rendercache

import (
	"fmt"

	"deckforge/internal/hashing"
)

// Hasher computes unit hashes over a primary source file plus the shared
// dependency set.
type Hasher struct {
	// SharedDirs are walked recursively; their files are hashed in sorted order.
	SharedDirs []string
	// SharedFiles are appended after the directory contents, in the given order.
	SharedFiles []string
}

// Files returns the ordered shared dependency list.
func (h Hasher) Files() ([]string, error) {
	var files []string
	for _, dir := range h.SharedDirs {
		collected, err := hashing.CollectFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("collect shared files in %s: %w", dir, err)
		}
		files = append(files, collected...)
	}
	return append(files, h.SharedFiles...), nil
}

// UnitHash returns the combined digest of sourcePath, then deps, then the
// shared files.
func (h Hasher) UnitHash(sourcePath string, deps ...string) (string, error) {
	shared, err := h.Files()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(shared)+len(deps)+1)
	parts = append(parts, hashing.File(sourcePath))
	parts = append(parts, hashing.Files(deps)...)
	parts = append(parts, hashing.Files(shared)...)
	return hashing.Combine(parts), nil
}
