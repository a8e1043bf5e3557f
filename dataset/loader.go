package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spektr-org/spektr-retail/objectstore"
)

// ObjectLoader combines several bucket objects (Parquet or CSV) into one
// table, in key order. An object that fails to fetch or decode is skipped.
type ObjectLoader struct {
	Fetcher objectstore.Fetcher
	Keys    []string
	Logger  *slog.Logger
}

// Compile-time check.
var _ Loader = (*ObjectLoader)(nil)

// Load fetches and decodes every key.
func (l *ObjectLoader) Load(ctx context.Context) (Table, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	objects, err := objectstore.FetchAll(ctx, l.Fetcher, l.Keys, logger)
	if err != nil {
		return Table{}, err
	}

	tables := make([]Table, 0, len(objects))
	for _, obj := range objects {
		t, err := decodeObject(ctx, obj.Ext(), obj.Data)
		if err != nil {
			logger.Warn("object decode failed, skipping", "key", obj.Key, "error", err)
			continue
		}
		logger.Info("object decoded", "key", obj.Key, "rows", len(t.Rows))
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return Table{}, fmt.Errorf("%w: no object could be decoded", objectstore.ErrNoObjects)
	}
	return Concat(tables...), nil
}

// FileLoader loads a single local CSV or Parquet file.
func FileLoader(path string) Loader {
	return LoaderFunc(func(ctx context.Context) (Table, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return Table{}, fmt.Errorf("read %s: %w", path, err)
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		return decodeObject(ctx, ext, data)
	})
}

func decodeObject(ctx context.Context, ext string, data []byte) (Table, error) {
	switch ext {
	case "parquet", "pq":
		return ReadParquet(ctx, data)
	case "csv", "txt", "":
		return ReadCSV(data)
	default:
		return Table{}, fmt.Errorf("unsupported object format %q", ext)
	}
}
