package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"election_crawler/internal/crawler"
	"election_crawler/internal/directory"
	"election_crawler/internal/history"
	"election_crawler/internal/httpclient"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Download election result reports for every discovered location",
	RunE:  runCrawl,
}

var (
	crawlElectionID   string
	crawlElectionCode string
	crawlDownloadDir  string
	crawlConcurrent   bool
	crawlMaxWorkers   int
)

func init() {
	crawlCmd.Flags().StringVar(&crawlElectionID, "election-id", "", "Election ID to crawl")
	crawlCmd.Flags().StringVar(&crawlElectionCode, "election-code", "", "Election type code")
	crawlCmd.Flags().StringVar(&crawlDownloadDir, "download-dir", "", "Directory to save downloaded files")
	crawlCmd.Flags().BoolVar(&crawlConcurrent, "concurrent", false, "Use concurrent downloads")
	crawlCmd.Flags().IntVar(&crawlMaxWorkers, "max-workers", 0, "Maximum number of concurrent workers")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	defer logger.Sync()

	if crawlElectionID != "" {
		cfg.Election.ID = crawlElectionID
	}
	if crawlElectionCode != "" {
		cfg.Election.Code = crawlElectionCode
	}
	if crawlDownloadDir != "" {
		cfg.Crawl.DownloadDir = crawlDownloadDir
	}
	maxWorkers := cfg.Crawl.MaxWorkers
	if crawlMaxWorkers > 0 {
		maxWorkers = crawlMaxWorkers
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := httpclient.New(cfg.HTTP, cfg.EntryPageURL(), logger)
	dir := directory.New(client, cfg.EntryPageURL(), cfg.TownCodeURL(), cfg.Election.ID, logger)

	var recorder *history.Recorder
	if cfg.History.Connection != "" {
		var err error
		recorder, err = history.Open(ctx, cfg.History)
		if err != nil {
			logger.Warn("download history disabled", zap.Error(err))
		} else {
			defer recorder.Close(context.Background())
		}
	}

	c := crawler.New(cfg, client, dir, recorder, logger)
	stats, err := c.Run(ctx, crawlConcurrent, maxWorkers)
	if err != nil {
		logger.Error("crawl failed", zap.Error(err))
		return err
	}
	if ctx.Err() != nil {
		logger.Info("crawl interrupted, partial results kept",
			zap.Int64("downloaded", stats.Downloaded))
	}
	return nil
}
