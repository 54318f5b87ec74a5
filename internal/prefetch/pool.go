package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gridpreview/pkg/cache"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/ratelimit"
)

// ErrPoolClosed is returned by Submit once Stop has been called
var ErrPoolClosed = errors.New("prefetch pool is shutting down")

// Job is one image to warm
type Job struct {
	URL    string
	PostID string
}

// Result is the outcome of a Job
type Result struct {
	Job      Job
	Success  bool
	Cached   bool // already present, nothing fetched
	Error    error
	Duration time.Duration
	Size     int
}

// ImageFetcher fetches image bytes
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (*imagesource.Image, error)
}

// Pool warms the image cache with a fixed number of workers
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     ImageFetcher
	cache       cache.ImageCache
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a prefetch pool. Results must be consumed or workers block.
func NewPool(
	numWorkers int,
	fetcher ImageFetcher,
	imageCache cache.ImageCache,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if numWorkers <= 0 {
		numWorkers = 1
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*4),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		cache:       imageCache,
		rateLimiter: rateLimiter,
		logger:      log.WithField("component", "prefetch"),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	logger.LogComponentStart("prefetch", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop lets queued jobs finish, then closes Results
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	logger.LogComponentStop("prefetch", "stopped")
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// TrySubmit queues a job only if there is room and reports whether it did
func (p *Pool) TrySubmit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// WarmPosts queues every post image without blocking and returns how many were queued
func (p *Pool) WarmPosts(posts []imagesource.Post) int {
	queued := 0
	for _, post := range posts {
		if post.ImageURL == "" {
			continue
		}
		if p.TrySubmit(Job{URL: post.ImageURL, PostID: post.ID}) {
			queued++
		}
	}
	if queued < len(posts) {
		p.logger.DebugWithFields("Some images were not queued for prefetch", map[string]interface{}{
			"posts":  len(posts),
			"queued": queued,
		})
	}
	return queued
}

// Results returns the result channel
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

// Drain logs results until the pool stops
func (p *Pool) Drain() {
	for r := range p.resultQueue {
		if r.Error != nil {
			p.logger.WithError(r.Error).WarnWithFields("Prefetch failed", map[string]interface{}{
				"post_id": r.Job.PostID,
			})
		}
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		result := p.processJob(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	if _, err := p.cache.Get(p.ctx, job.URL); err == nil {
		result.Success = true
		result.Cached = true
		result.Duration = time.Since(start)
		return result
	}

	if !p.rateLimiter.Allow() {
		p.logger.DebugWithFields("Worker waiting for rate limit", map[string]interface{}{
			"worker_id": workerID,
			"post_id":   job.PostID,
		})
		if err := p.rateLimiter.Wait(p.ctx); err != nil {
			result.Error = fmt.Errorf("rate limit wait: %w", err)
			result.Duration = time.Since(start)
			return result
		}
	}

	img, err := p.fetcher.FetchImage(p.ctx, job.URL)
	if err != nil {
		result.Error = fmt.Errorf("fetch failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Size = len(img.Data)

	if err := p.cache.Set(p.ctx, job.URL, &cache.Entry{Data: img.Data, ContentType: img.ContentType}); err != nil {
		result.Error = fmt.Errorf("cache set failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)

	p.logger.DebugWithFields("Image prefetched", map[string]interface{}{
		"worker_id": workerID,
		"post_id":   job.PostID,
		"size":      result.Size,
		"duration":  result.Duration,
	})
	return result
}
