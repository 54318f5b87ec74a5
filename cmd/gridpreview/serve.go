package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gridpreview/internal/prefetch"
	"gridpreview/pkg/cache"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/ratelimit"
	"gridpreview/pkg/server"
)

var (
	servePort      string
	serveHost      string
	serveCache     string
	serveRedisAddr string
	servePrefetch  bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API used by the grid preview page",
	Long: `Run the HTTP API used by the grid preview page.

Endpoints:
  GET /api/fetchPosts?username=<name>   recent posts as [{id, imageUrl, caption}]
  GET /api/image-proxy?url=<image url>  image bytes, cached
  GET /health                           liveness
  GET /ready                            readiness, including the redis cache

The RapidAPI key is taken from RAPIDAPI_KEY, the config file, or the
credential store (see 'gridpreview auth login').`,
	Example: `  # Serve on the default port with the in-memory cache
  gridpreview serve

  # Use redis for the image cache
  gridpreview serve --cache redis --redis-addr localhost:6379`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "port to listen on (default 3000)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "interface to listen on")
	serveCmd.Flags().StringVar(&serveCache, "cache", "", "image cache backend (memory, redis, none)")
	serveCmd.Flags().StringVar(&serveRedisAddr, "redis-addr", "", "redis address for the redis cache")
	serveCmd.Flags().BoolVar(&servePrefetch, "prefetch", true, "warm the image cache after each posts lookup")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"port":       servePort,
		"host":       serveHost,
		"cache":      serveCache,
		"redis-addr": serveRedisAddr,
	}
	if cmd.Flags().Changed("prefetch") {
		flags["prefetch"] = servePrefetch
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pool   *prefetch.Pool
		warmer server.Warmer
	)
	if cfg.Prefetch.Enabled {
		pool = prefetch.NewPool(cfg.Prefetch.Workers, a.client, a.cache, ratelimit.NewFromConfig(cfg.Prefetch.RateLimit), a.log)
		warmer = pool
	}

	pingers := map[string]server.Pinger{}
	if rc, ok := a.cache.(*cache.RedisCache); ok {
		pingers["redis"] = rc
	}

	srv := server.NewHTTPServer(cfg.Server, a.log,
		server.NewHealthController(pingers, a.log),
		server.NewAPIController(a.client, a.cache, warmer, cfg.Server.ImageMaxAge, a.log),
	)

	g, gctx := errgroup.WithContext(ctx)

	if pool != nil {
		pool.Start()
		g.Go(func() error {
			pool.Drain()
			return nil
		})
	}

	g.Go(func() error {
		logger.LogComponentStart("http", map[string]interface{}{
			"addr":     srv.Addr,
			"cache":    cfg.Cache.Backend,
			"prefetch": cfg.Prefetch.Enabled,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if pool != nil {
			pool.Stop()
		}
		logger.LogComponentStop("http", "shutdown")
		return err
	})

	return g.Wait()
}
