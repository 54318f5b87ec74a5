package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"gridpreview/internal/prefetch"
	"gridpreview/pkg/cache"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/ratelimit"
	"gridpreview/pkg/ui"
)

var (
	warmWorkers   int
	warmRedisAddr string
)

// warmCmd represents the warm command
var warmCmd = &cobra.Command{
	Use:   "warm <username>",
	Short: "Fill the shared image cache with an account's post images",
	Long: `Fetch the recent posts of an account and store every post image in the
image cache ahead of the first page view. Only useful with the redis backend,
which outlives this command.`,
	Example: `  gridpreview warm natgeo --redis-addr localhost:6379`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)
	warmCmd.Flags().IntVarP(&warmWorkers, "workers", "w", 0, "number of concurrent image fetches (default from config)")
	warmCmd.Flags().StringVar(&warmRedisAddr, "redis-addr", "", "redis address (selects the redis backend)")
}

func runWarm(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if warmRedisAddr != "" {
		flags["cache"] = "redis"
		flags["redis-addr"] = warmRedisAddr
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	if strings.ToLower(cfg.Cache.Backend) != "redis" {
		ui.PrintWarning("The " + cfg.Cache.Backend + " cache does not outlive this command")
	}

	imageCache, err := cache.New(cfg.Cache, log)
	if err != nil {
		return err
	}
	defer imageCache.Close()

	client := newClient(cfg, log)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RapidAPI.Timeout)
	posts, err := client.FetchPosts(ctx, args[0])
	cancel()
	if err != nil {
		return err
	}

	var jobs []prefetch.Job
	for _, p := range posts {
		if p.ImageURL != "" {
			jobs = append(jobs, prefetch.Job{URL: p.ImageURL, PostID: p.ID})
		}
	}
	if len(jobs) == 0 {
		ui.PrintWarning("No post images to warm")
		return nil
	}

	workers := warmWorkers
	if workers <= 0 {
		workers = cfg.Prefetch.Workers
	}
	pool := prefetch.NewPool(workers, client, imageCache, ratelimit.NewFromConfig(cfg.Prefetch.RateLimit), log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	tracker := ui.NewStatusTracker(len(jobs))
	for result := range pool.Results() {
		tracker.Record(result.Error)
		if result.Error != nil {
			log.WithError(result.Error).WarnWithFields("Image not cached", map[string]interface{}{
				"post_id": result.Job.PostID,
			})
		}
		if !quiet {
			tracker.PrintProgress()
		}
	}
	tracker.PrintSummary()
	return nil
}
