package feed

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"chanfeed/internal/aggregate"
	"chanfeed/internal/category"
	"chanfeed/internal/config"
	"chanfeed/internal/errs"
	"chanfeed/internal/metrics"
	"chanfeed/internal/publish"
	"chanfeed/internal/storage"
	"chanfeed/internal/vcs"
	"chanfeed/internal/youtube"
)

// App is the fully wired application.
type App struct {
	Config    *config.Config
	Log       zerolog.Logger
	Metrics   *metrics.Metrics
	Registry  *storage.Registry
	Feed      *storage.Feed
	Publisher *publish.Publisher
	Service   *Service
}

// Open wires every component from cfg. A missing API key does not fail Open;
// catalog operations report it instead.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	tax, err := category.Load(cfg.TaxonomyFile)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	var catalog youtube.Catalog = unconfiguredCatalog{}
	if cfg.APIKey != "" {
		client, err := youtube.NewAPIClient(ctx, youtube.Options{
			APIKey:            cfg.APIKey,
			RequestTimeout:    cfg.RequestTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Retry:             cfg.RetryConfig(),
			Logger:            log,
			Observer:          m,
		})
		if err != nil {
			return nil, err
		}
		m.TrackQuota(client.QuotaUsed)
		catalog = client
	} else {
		log.Warn().Msg("no YouTube API key configured; catalog operations will fail")
	}

	files, err := cfg.RepoFiles()
	if err != nil {
		return nil, err
	}

	registry := storage.NewRegistry(cfg.ChannelsPath(), log)
	feedStore := storage.NewFeed(cfg.VideosPath())

	agg := aggregate.New(catalog, category.NewClassifier(tax), aggregate.Config{
		ListLimit:   cfg.MaxResults,
		Concurrency: cfg.Concurrency,
		Logger:      log,
		Observer:    m,
	})

	pub := publish.New(registry, agg, feedStore, vcs.New(cfg.RepoDir, cfg.GitTimeout, log), publish.Config{
		Files:       files,
		Remote:      cfg.Remote,
		Branch:      cfg.Branch,
		LockPath:    cfg.LockPath(),
		LockTimeout: cfg.LockTimeout,
		Development: !cfg.IsProduction(),
		Logger:      log,
		Observer:    m,
	})

	svc := NewService(catalog, registry, feedStore, pub, Options{
		AllowPlaceholders: cfg.AllowPlaceholderChannels && !cfg.IsProduction(),
		Logger:            log,
	})

	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   m,
		Registry:  registry,
		Feed:      feedStore,
		Publisher: pub,
		Service:   svc,
	}, nil
}

var errNoAPIKey = fmt.Errorf("%w: YouTube API key is not configured", errs.ErrValidation)

// unconfiguredCatalog fails every call when no API key is set.
type unconfiguredCatalog struct{}

func (unconfiguredCatalog) ResolveHandle(context.Context, string) (youtube.Channel, error) {
	return youtube.Channel{}, errNoAPIKey
}

func (unconfiguredCatalog) LookupChannel(context.Context, string) (youtube.Channel, error) {
	return youtube.Channel{}, errNoAPIKey
}

func (unconfiguredCatalog) ResolveUploadsListing(context.Context, string) (string, error) {
	return "", errNoAPIKey
}

func (unconfiguredCatalog) ListRecentItems(context.Context, string, int) ([]youtube.Item, error) {
	return nil, errNoAPIKey
}
