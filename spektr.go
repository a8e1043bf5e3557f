// Package spektr answers natural-language questions about retail sales.
//
// Usage:
//
//	store := dataset.NewStore(dataset.FileLoader("sales.csv"), logger)
//	tr := translator.NewGemini(translator.DefaultGeminiConfig(apiKey))
//	analyst := spektr.New(store, tr, artifact.NewMemoryCache())
//
//	answer, err := analyst.Ask(ctx, sessionID, "top 5 items in B1 last month")
//
// The translator turns the question into a Plan; the engine filters,
// aggregates and formats locally; the report package renders the result.
// Only the translator calls an external service.
package spektr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spektr-org/spektr-retail/artifact"
	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/engine"
	"github.com/spektr-org/spektr-retail/report"
	"github.com/spektr-org/spektr-retail/translator"
)

// Version is the release version reported by the CLI and the API.
const Version = "0.3.0"

// Answer is the outcome of one question.
type Answer struct {
	Query    string
	Plan     engine.Plan
	Result   *engine.Result
	Artifact artifact.Artifact
}

// Analyst wires the dataset store, translator, engine and report cache.
type Analyst struct {
	store      *dataset.Store
	translator translator.Translator
	cache      artifact.Cache
	logger     *slog.Logger
	engineOpts []engine.Option
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithLogger sets the logger for the analyst and the engine.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyst) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithEngineOptions passes options to plan normalization and execution.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(a *Analyst) {
		a.engineOpts = append(a.engineOpts, opts...)
	}
}

// New creates an Analyst. tr and cache may be nil: without a translator
// only explicit plans run, without a cache reports are not kept.
func New(store *dataset.Store, tr translator.Translator, cache artifact.Cache, opts ...Option) *Analyst {
	a := &Analyst{
		store:      store,
		translator: tr,
		cache:      cache,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary returns the dataset summary of the current snapshot.
func (a *Analyst) Summary(ctx context.Context) (dataset.Summary, error) {
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return dataset.Summary{}, err
	}
	return snap.Summary(), nil
}

// Ask translates query into a plan and runs it.
func (a *Analyst) Ask(ctx context.Context, session, query string) (*Answer, error) {
	if a.translator == nil {
		return nil, &engine.UpstreamServiceError{Service: "translator", Message: "no translator configured"}
	}
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := a.translator.Translate(ctx, query, snap.Summary())
	if err != nil {
		return nil, err
	}
	return a.run(ctx, snap, session, query, plan)
}

// RunRaw normalizes an explicit plan mapping and runs it.
func (a *Analyst) RunRaw(ctx context.Context, session, query string, raw json.RawMessage) (*Answer, error) {
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &engine.InvalidPlanError{Reason: "plan is not valid JSON", Err: err}
	}
	plan, err := engine.NormalizePlan(m, a.engineOpts...)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, session, query, plan)
}

// Run executes a normalized plan against the current snapshot.
func (a *Analyst) Run(ctx context.Context, session, query string, plan engine.Plan) (*Answer, error) {
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, snap, session, query, plan)
}

func (a *Analyst) run(ctx context.Context, snap *dataset.Snapshot, session, query string, plan engine.Plan) (*Answer, error) {
	opts := append([]engine.Option{engine.WithLogger(a.logger)}, a.engineOpts...)
	result, err := engine.Execute(plan, snap.View, opts...)
	if err != nil {
		return nil, err
	}

	body, err := report.RenderHTML(result)
	if err != nil {
		return nil, err
	}
	art := artifact.Artifact{
		ID:          uuid.NewString(),
		Session:     session,
		Title:       result.Title,
		Summary:     result.Summary,
		Filename:    report.Filename(result),
		ContentType: report.ContentType,
		Data:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if a.cache != nil && session != "" {
		if err := a.cache.Put(ctx, art); err != nil {
			return nil, fmt.Errorf("cache report: %w", err)
		}
	}

	return &Answer{Query: query, Plan: plan, Result: result, Artifact: art}, nil
}

// LatestReport returns the session's most recent report.
func (a *Analyst) LatestReport(ctx context.Context, session string) (artifact.Artifact, error) {
	if a.cache == nil {
		return artifact.Artifact{}, artifact.ErrNotFound
	}
	return a.cache.Latest(ctx, session)
}
