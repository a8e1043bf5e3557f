package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// STORE — process-wide, read-only dataset
// ============================================================================
// Readers take the current *Snapshot and never see it change: Refresh
// builds a new Snapshot and swaps the pointer. The first Snapshot call
// loads lazily; concurrent first calls share one load.
// ============================================================================

// ErrUnavailable is returned when no dataset could be loaded.
var ErrUnavailable = errors.New("dataset unavailable")

// Loader produces the raw table a snapshot is decoded from.
type Loader interface {
	Load(ctx context.Context) (Table, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Table, error)

func (f LoaderFunc) Load(ctx context.Context) (Table, error) { return f(ctx) }

// Snapshot is one immutable load of the dataset.
type Snapshot struct {
	Records  []engine.Record
	View     engine.RecordView
	Report   LoadReport
	LoadedAt time.Time

	summaryOnce sync.Once
	summary     Summary
}

// NewSnapshot decodes a table into a snapshot.
func NewSnapshot(t Table) (*Snapshot, error) {
	records, report, err := Decode(t)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Records:  records,
		View:     engine.NewSliceViewWithColumns(records, PresentColumns(t.Columns)),
		Report:   report,
		LoadedAt: time.Now(),
	}, nil
}

// Summary is computed on first call and cached for the snapshot's lifetime.
func (s *Snapshot) Summary() Summary {
	s.summaryOnce.Do(func() {
		s.summary = Summarize(s.View)
	})
	return s.summary
}

// Store holds the current snapshot.
type Store struct {
	loader  Loader
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex

	cronMu sync.Mutex
	cron   *cron.Cron
}

// NewStore creates a store that loads lazily through loader.
func NewStore(loader Loader, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{loader: loader, logger: logger}
}

// Snapshot returns the current snapshot, loading it on first use.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}

// Refresh loads a new snapshot and swaps it in. On failure the previous
// snapshot stays current.
func (s *Store) Refresh(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	prev := s.current.Swap(snap)
	if prev != nil {
		s.logger.Info("dataset refreshed", "previous_rows", prev.Report.Rows, "rows", snap.Report.Rows)
	}
	return nil
}

// Replace swaps in a prepared snapshot.
func (s *Store) Replace(snap *Snapshot) {
	s.current.Store(snap)
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	if s.loader == nil {
		return nil, fmt.Errorf("%w: no loader configured", ErrUnavailable)
	}
	started := time.Now()
	t, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("dataset load failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	snap, err := NewSnapshot(t)
	if err != nil {
		s.logger.Error("dataset decode failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.logger.Info("dataset loaded",
		"rows", snap.Report.Rows,
		"unparsed_dates", snap.Report.UnparsedDates,
		"missing_totals", snap.Report.MissingTotals,
		"missing_columns", snap.Report.MissingColumns,
		"elapsed", time.Since(started),
	)
	return snap, nil
}

// StartRefresh schedules Refresh on a cron spec ("@hourly", "0 */6 * * *").
func (s *Store) StartRefresh(spec string) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return errors.New("refresh already scheduled")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("scheduled refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("dataset refresh scheduled", "schedule", spec)
	return nil
}

// Stop halts scheduled refreshes.
func (s *Store) Stop() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}
