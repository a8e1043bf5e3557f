package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	spektr "github.com/spektr-org/spektr-retail"
	"github.com/spektr-org/spektr-retail/artifact"
	"github.com/spektr-org/spektr-retail/config"
	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/delivery"
	"github.com/spektr-org/spektr-retail/engine"
	"github.com/spektr-org/spektr-retail/objectstore"
	"github.com/spektr-org/spektr-retail/translator"
)

// ============================================================================
// WIRING — config → store, translator, cache, delivery channels
// ============================================================================

// closers collects resources released on shutdown, in reverse order.
type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].Close()
	}
}

func engineOptions(cfg *config.Config) []engine.Option {
	opts := []engine.Option{engine.WithDefaultYear(cfg.Dataset.DefaultYear)}
	if cfg.Dataset.SubstringFallback {
		opts = append(opts, engine.WithSubstringFallback())
	}
	return opts
}

func buildLoader(ctx context.Context, cfg config.DatasetConfig, logger *slog.Logger) (dataset.Loader, io.Closer, error) {
	var (
		fetcher objectstore.Fetcher
		closer  io.Closer
	)
	switch cfg.Source {
	case config.SourceFile:
		return dataset.FileLoader(cfg.Path), nil, nil
	case config.SourceDir:
		fetcher = objectstore.NewDirFetcher(cfg.Path)
	case config.SourceS3:
		f, err := objectstore.NewS3Fetcher(objectstore.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			KeyID:     cfg.KeyID,
			Secret:    cfg.Secret,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		fetcher = f
	case config.SourceGCS:
		f, err := objectstore.NewGCSFetcher(ctx, cfg.Bucket, cfg.GCSKeyFile)
		if err != nil {
			return nil, nil, err
		}
		fetcher, closer = f, f
	case config.SourceAzure:
		f, err := objectstore.NewAzureFetcher(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
		if err != nil {
			return nil, nil, err
		}
		fetcher = f
	default:
		return nil, nil, fmt.Errorf("unknown dataset source %q", cfg.Source)
	}
	return &dataset.ObjectLoader{Fetcher: fetcher, Keys: cfg.Keys, Logger: logger}, closer, nil
}

func buildCache(cfg config.ArtifactConfig) (artifact.Cache, io.Closer, error) {
	if cfg.Backend != config.CacheBadger {
		return artifact.NewMemoryCache(), nil, nil
	}
	bc, err := artifact.OpenBadger(cfg.Path, cfg.TTL)
	if err != nil {
		return nil, nil, err
	}
	return bc, bc, nil
}

func buildRegistry(cfg *config.Config, logger *slog.Logger) (*delivery.Registry, io.Closer, error) {
	reg := delivery.NewRegistry()

	if len(cfg.Slack.Channels) > 0 {
		opts := []delivery.SlackOption{delivery.WithSlackLogger(logger)}
		if cfg.Slack.BaseURL != "" {
			opts = append(opts, delivery.WithSlackBaseURL(cfg.Slack.BaseURL))
		}
		slack := delivery.NewSlack(cfg.Slack.Token, opts...)
		for _, ch := range cfg.Slack.Channels {
			reg.Register(ch.Key, ch.Name, ch.Target, slack)
		}
	}

	var closer io.Closer
	if len(cfg.AMQP.Channels) > 0 {
		d, err := delivery.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, nil, err
		}
		closer = d
		for _, ch := range cfg.AMQP.Channels {
			reg.Register(ch.Key, ch.Name, ch.Target, d)
		}
	}
	return reg, closer, nil
}

// app is the fully wired service.
type app struct {
	store    *dataset.Store
	analyst  *spektr.Analyst
	registry *delivery.Registry
	closers  closers
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, withDelivery bool) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.closers.Close()
		}
	}()

	loader, c, err := buildLoader(ctx, cfg.Dataset, logger)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if c != nil {
		a.closers = append(a.closers, c)
	}
	a.store = dataset.NewStore(loader, logger)

	cache, c, err := buildCache(cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("artifact cache: %w", err)
	}
	if c != nil {
		a.closers = append(a.closers, c)
	}

	opts := engineOptions(cfg)
	tr := translator.NewGemini(translator.Config{
		APIKey:   cfg.Translator.APIKey,
		Model:    cfg.Translator.Model,
		Endpoint: cfg.Translator.Endpoint,
		Timeout:  cfg.Translator.Timeout,
	}, translator.WithLogger(logger), translator.WithPlanOptions(opts...))

	a.analyst = spektr.New(a.store, tr, cache, spektr.WithLogger(logger), spektr.WithEngineOptions(opts...))

	if withDelivery {
		reg, c, err := buildRegistry(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("delivery: %w", err)
		}
		if c != nil {
			a.closers = append(a.closers, c)
		}
		a.registry = reg
	}

	ok = true
	return a, nil
}

func (a *app) Close() {
	a.store.Stop()
	a.closers.Close()
}
