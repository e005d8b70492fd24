// Package crawler drives the crawl over the region × sub-region product,
// downloading one report document per pair and persisting it idempotently.
package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"election_crawler/internal/config"
	"election_crawler/internal/directory"
	"election_crawler/internal/history"
	"election_crawler/internal/httpclient"
)

type Task struct {
	RegionCode    string
	RegionName    string
	SubRegionCode string
	SubRegionName string
}

type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	default:
		return "error"
	}
}

// Result is the outcome of one task; the orchestrator folds results into the
// run statistics instead of sharing mutable counters with the tasks.
type Result struct {
	Task     Task
	Status   Status
	Path     string
	Bytes    int64
	Err      error
	Duration time.Duration
}

type Stats struct {
	Downloaded int64
	Skipped    int64
	Errors     int64
	TotalBytes int64
	Elapsed    time.Duration
}

type Crawler struct {
	cfg      *config.Config
	client   *httpclient.Client
	dir      *directory.Directory
	recorder *history.Recorder
	logger   *zap.Logger
	sleep    func(time.Duration)

	downloaded atomic.Int64
	skipped    atomic.Int64
	errors     atomic.Int64
	totalBytes atomic.Int64
}

// New wires the crawler. recorder may be nil; download history is then not
// persisted.
func New(cfg *config.Config, client *httpclient.Client, dir *directory.Directory, recorder *history.Recorder, logger *zap.Logger) *Crawler {
	return &Crawler{
		cfg:      cfg,
		client:   client,
		dir:      dir,
		recorder: recorder,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Run crawls every discovered location. Only a failure to list regions at all
// is fatal; individual task failures are counted and logged. A canceled
// context stops further task submission and still returns the statistics
// accumulated so far.
func (c *Crawler) Run(ctx context.Context, concurrent bool, maxWorkers int) (Stats, error) {
	if err := os.MkdirAll(c.cfg.Crawl.DownloadDir, 0755); err != nil {
		return Stats{}, fmt.Errorf("create download directory: %w", err)
	}
	c.logger.Info("starting election results crawl",
		zap.String("election_id", c.cfg.Election.ID),
		zap.String("download_dir", c.cfg.Crawl.DownloadDir),
		zap.Bool("concurrent", concurrent))

	start := time.Now()

	regions, err := c.dir.Regions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list regions: %w", err)
	}
	if len(regions) == 0 {
		return Stats{}, fmt.Errorf("entry page contained no regions")
	}

	c.checkRobots(ctx)

	if concurrent {
		c.runConcurrent(ctx, regions, maxWorkers)
	} else {
		c.runSequential(ctx, regions)
	}

	stats := c.snapshot(time.Since(start))
	c.logStats(stats)
	return stats, nil
}

func (c *Crawler) runSequential(ctx context.Context, regions []directory.Location) {
	for i, region := range regions {
		if ctx.Err() != nil {
			return
		}
		c.logger.Info("processing region",
			zap.Int("index", i+1),
			zap.Int("total", len(regions)),
			zap.String("name", region.Name),
			zap.String("code", region.Code))

		subRegions := c.dir.SubRegions(ctx, region.Code)
		if len(subRegions) == 0 {
			c.logger.Warn("no sub-regions found, skipping region",
				zap.String("name", region.Name), zap.String("code", region.Code))
			continue
		}

		for _, sub := range subRegions {
			if ctx.Err() != nil {
				return
			}
			c.process(ctx, Task{
				RegionCode:    region.Code,
				RegionName:    region.Name,
				SubRegionCode: sub.Code,
				SubRegionName: sub.Name,
			})
			c.sleep(c.taskDelay())
		}

		if i < len(regions)-1 {
			c.sleep(time.Duration(c.cfg.Crawl.RegionDelayMS) * time.Millisecond)
		}
	}
}

func (c *Crawler) runConcurrent(ctx context.Context, regions []directory.Location, maxWorkers int) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	// Sub-region lists are fetched up front so the worker pool only ever
	// sees report downloads.
	lists := make([][]directory.Location, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			lists[i] = c.dir.SubRegions(gctx, region.Code)
			return nil
		})
	}
	_ = g.Wait()

	var tasks []Task
	for i, region := range regions {
		for _, sub := range lists[i] {
			tasks = append(tasks, Task{
				RegionCode:    region.Code,
				RegionName:    region.Name,
				SubRegionCode: sub.Code,
				SubRegionName: sub.Name,
			})
		}
	}
	c.logger.Info("starting concurrent downloads",
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", maxWorkers))

	taskCh := make(chan Task)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				c.process(ctx, task)
			}
		}()
	}

submit:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break submit
		case taskCh <- task:
		}
	}
	close(taskCh)
	wg.Wait()
}

// taskDelay is the sequential-mode pause between sub-region downloads: the
// configured base delay with ±0.2s of jitter.
func (c *Crawler) taskDelay() time.Duration {
	base := time.Duration(c.cfg.Crawl.BaseDelayMS) * time.Millisecond
	jitter := time.Duration((rand.Float64() - 0.5) * 0.4 * float64(time.Second))
	return base + jitter
}

func (c *Crawler) process(ctx context.Context, task Task) {
	res := c.download(ctx, task)

	switch res.Status {
	case StatusDownloaded:
		c.downloaded.Add(1)
		c.totalBytes.Add(res.Bytes)
	case StatusSkipped:
		c.skipped.Add(1)
	case StatusFailed:
		c.errors.Add(1)
	}

	c.record(ctx, res)
}

func (c *Crawler) record(ctx context.Context, res Result) {
	if c.recorder == nil {
		return
	}
	rec := history.Record{
		RegionCode:    res.Task.RegionCode,
		RegionName:    res.Task.RegionName,
		SubRegionCode: res.Task.SubRegionCode,
		SubRegionName: res.Task.SubRegionName,
		Status:        res.Status.String(),
		File:          res.Path,
		Bytes:         res.Bytes,
		Timestamp:     time.Now().Unix(),
		DurationMS:    res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		rec.ErrorMessage = res.Err.Error()
	}
	// History should still be written for tasks that finished during shutdown.
	if err := c.recorder.Note(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("failed to record download history", zap.Error(err))
	}
}

func (c *Crawler) snapshot(elapsed time.Duration) Stats {
	return Stats{
		Downloaded: c.downloaded.Load(),
		Skipped:    c.skipped.Load(),
		Errors:     c.errors.Load(),
		TotalBytes: c.totalBytes.Load(),
		Elapsed:    elapsed,
	}
}

func (c *Crawler) logStats(stats Stats) {
	fields := []zap.Field{
		zap.Int64("processed", stats.Downloaded+stats.Skipped+stats.Errors),
		zap.Int64("downloaded", stats.Downloaded),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("errors", stats.Errors),
		zap.Int64("total_bytes", stats.TotalBytes),
		zap.Duration("elapsed", stats.Elapsed),
	}
	if stats.Downloaded > 0 {
		avg := time.Duration(int64(stats.Elapsed) / stats.Downloaded)
		fields = append(fields, zap.Duration("avg_per_download", avg))
	}
	c.logger.Info("crawl completed", fields...)
}
