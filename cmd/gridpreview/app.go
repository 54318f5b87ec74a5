package main

import (
	"fmt"

	"gridpreview/pkg/auth"
	"gridpreview/pkg/cache"
	"gridpreview/pkg/config"
	"gridpreview/pkg/grid"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/ratelimit"
	"gridpreview/pkg/retry"
	"gridpreview/pkg/snapshot"
	"gridpreview/pkg/storage"
	"gridpreview/pkg/upload"
)

// app holds the components shared by the commands
type app struct {
	cfg      *config.Config
	log      logger.Logger
	cache    cache.ImageCache
	client   *imagesource.Client
	engine   *grid.Engine
	blobs    *storage.BlobStore
	uploader *upload.Uploader
	layouts  *snapshot.Manager
}

// credentialResolver prefers a key from configuration or the environment,
// then the stored credentials
func credentialResolver(cfg *config.Config, log logger.Logger) auth.Resolver {
	resolvers := []auth.Resolver{auth.Static(cfg.RapidAPI.Key, cfg.RapidAPI.Host)}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential store unavailable, using configuration only")
	} else {
		resolvers = append(resolvers, manager)
	}
	return auth.Chain(resolvers...)
}

func newClient(cfg *config.Config, log logger.Logger) *imagesource.Client {
	return imagesource.NewClient(cfg.RapidAPI, credentialResolver(cfg, log),
		imagesource.WithLimiter(ratelimit.NewFromConfig(cfg.RateLimit)),
		imagesource.WithRetry(retry.FromConfig(cfg.Retry, log)),
		imagesource.WithLogger(log.WithField("component", "imagesource")),
	)
}

// newApp wires every component. The cache must be closed by the caller.
func newApp(cfg *config.Config) (*app, error) {
	log := logger.GetLogger()

	imageCache, err := cache.New(cfg.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	opts := grid.OptionsFromConfig(cfg.Grid)
	opts.Logger = log
	engine := grid.NewEngine(opts)

	blobs, err := storage.NewBlobStore(cfg.Upload.Directory)
	if err != nil {
		imageCache.Close()
		return nil, fmt.Errorf("failed to open upload directory: %w", err)
	}

	layouts, err := snapshot.NewManager(cfg.Grid.LayoutDir, log)
	if err != nil {
		imageCache.Close()
		return nil, fmt.Errorf("failed to open layout directory: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		cache:    imageCache,
		client:   newClient(cfg, log),
		engine:   engine,
		blobs:    blobs,
		uploader: upload.NewUploader(upload.NewValidator(cfg.Upload.MaxBytes), blobs, engine, log),
		layouts:  layouts,
	}, nil
}

func (a *app) Close() {
	a.engine.Close()
	if err := a.cache.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close image cache")
	}
}
