package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirFetcher reads objects from a local directory; keys are relative paths.
type DirFetcher struct {
	root string
}

// Compile-time check.
var _ Fetcher = DirFetcher{}

// NewDirFetcher creates a fetcher rooted at dir.
func NewDirFetcher(dir string) DirFetcher {
	return DirFetcher{root: dir}
}

// Get reads root/key. Keys may not escape the root.
func (f DirFetcher) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("key %q escapes %s", key, f.root)
	}
	data, err := os.ReadFile(filepath.Join(f.root, clean))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
