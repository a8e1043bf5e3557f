package artifact

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ============================================================================
// ARTIFACT CACHE — last rendered report per session
// ============================================================================
// Each query overwrites the session's previous artifact. Sessions never see
// each other's reports.
// ============================================================================

// ErrNotFound is returned when a session has no artifact yet.
var ErrNotFound = errors.New("no report available")

// Artifact is one rendered report.
type Artifact struct {
	ID          string    `json:"id"`
	Session     string    `json:"session"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

// Cache stores the latest artifact per session.
type Cache interface {
	Put(ctx context.Context, a Artifact) error
	Latest(ctx context.Context, session string) (Artifact, error)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]Artifact
}

// Compile-time check.
var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]Artifact)}
}

func (c *MemoryCache) Put(_ context.Context, a Artifact) error {
	if a.Session == "" {
		return errors.New("artifact has no session")
	}
	c.mu.Lock()
	c.items[a.Session] = a
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Latest(_ context.Context, session string) (Artifact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.items[session]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}
