// Package objectstore fetches raw dataset objects from a bucket or a local
// directory behind one interface.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrNoObjects is returned when none of the requested keys could be fetched.
var ErrNoObjects = errors.New("no objects fetched")

// defaultConcurrency bounds parallel downloads in FetchAll.
const defaultConcurrency = 4

// Fetcher reads a whole object by key.
type Fetcher interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Object is one fetched key.
type Object struct {
	Key  string
	Data []byte
}

// Ext returns the lower-cased extension of the key without the dot.
func (o Object) Ext() string {
	i := strings.LastIndex(o.Key, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(o.Key[i+1:])
}

// FetchAll fetches keys concurrently and returns the successful objects in
// key order. A failed key is logged and skipped; if every key fails the
// error wraps ErrNoObjects. Cancellation aborts the whole fetch.
func FetchAll(ctx context.Context, f Fetcher, keys []string, logger *slog.Logger) ([]Object, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys configured", ErrNoObjects)
	}

	results := make([]*Object, len(keys))
	failures := make([]error, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := f.Get(gctx, key)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				logger.Warn("object fetch failed, skipping", "key", key, "error", err)
				return nil
			}
			logger.Info("object fetched", "key", key, "bytes", len(data))
			results[i] = &Object{Key: key, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Object, 0, len(keys))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoObjects, errors.Join(failures...))
	}
	return out, nil
}
