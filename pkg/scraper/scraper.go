package scraper

import (
	"context"
	"time"

	"pinscraper/internal/downloader"
	"pinscraper/pkg/config"
	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/httpclient"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/pinterest"
	"pinscraper/pkg/ratelimit"
	"pinscraper/pkg/render"
	"pinscraper/pkg/resolver"
)

// Summary describes one run
type Summary struct {
	Query      string
	Source     resolver.Stage
	Candidates int
	Downloaded int
	Failed     int
	Bytes      int64
	OutputDir  string
	Duration   time.Duration
	Resolution *resolver.Resolution
	Results    []downloader.DownloadResult
}

// Scraper orchestrates resolution and download for a query
type Scraper struct {
	resolver   URLResolver
	downloader BatchDownloader
	config     *config.Config
	logger     logger.Logger
}

// New builds the HTTP session, renderer, resolver and download manager
// described by cfg. The session is shared by all of them.
func New(cfg *config.Config, log logger.Logger) *Scraper {
	log = logger.OrNop(log)

	client := httpclient.New(httpclient.OptionsFromConfig(cfg), log.WithField("component", "http"))

	var renderer render.Renderer = render.NopRenderer{}
	if cfg.Search.Render {
		renderer = render.NewScriptRenderer(client, render.Options{
			Timeout:     cfg.Search.RenderTimeout,
			DataIslands: []string{pinterest.PWSDataScriptID},
		}, log.WithField("component", "render"))
	}

	res := resolver.New(client, renderer, resolver.Options{
		BaseURL:    cfg.Pinterest.BaseURL,
		APITimeout: cfg.Search.APITimeout,
	}, log.WithField("component", "resolver"))

	limiter := ratelimit.NewPerMinute(cfg.Download.RequestsPerMinute, 1)

	dl := downloader.NewManager(client, limiter, downloader.Options{
		MaxRetries:      cfg.Download.MaxRetries,
		BackoffFactor:   cfg.Download.BackoffFactor,
		Workers:         cfg.Download.ConcurrentDownloads,
		FileNamePattern: cfg.Output.FileNamePattern,
	}, log.WithField("component", "downloader"))

	return NewWithComponents(cfg, res, dl, log)
}

// NewWithComponents creates a Scraper from existing collaborators
func NewWithComponents(cfg *config.Config, res URLResolver, dl BatchDownloader, log logger.Logger) *Scraper {
	return &Scraper{
		resolver:   res,
		downloader: dl,
		config:     cfg,
		logger:     logger.OrNop(log),
	}
}

// Run resolves query and downloads the candidates into the configured output
// directory. The summary is returned even when err is non-nil. err is an
// *errors.Error of type empty_result when nothing was found, no_downloads
// when nothing could be saved, or storage when the directory is unusable.
func (s *Scraper) Run(ctx context.Context, query string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		Query:     query,
		OutputDir: s.config.Output.Directory,
	}
	log := s.logger.WithField("query", query)

	res := s.resolver.Resolve(ctx, query, s.config.Search.Limit)
	summary.Resolution = res
	summary.Source = res.Source
	summary.Candidates = len(res.URLs)

	if res.Empty() {
		summary.Duration = time.Since(start)
		fields := map[string]interface{}{
			"primary":  string(res.Primary.Reason),
			"fallback": string(res.Fallback.Reason),
		}
		if res.Unreachable() {
			log.ErrorWithFields("nothing to download: search API unreachable", fields)
			return summary, errs.EmptyResult("search API unreachable", res.Fallback.Err)
		}
		log.ErrorWithFields("nothing to download", fields)
		return summary, errs.EmptyResult("no image URLs found", nil)
	}

	count, results, err := s.downloader.DownloadAll(ctx, res.URLs, s.config.Output.Directory)
	summary.Duration = time.Since(start)
	if err != nil {
		return summary, err
	}

	summary.Results = results
	summary.Downloaded = count
	summary.Failed = len(res.URLs) - count
	for _, r := range results {
		if r.Success {
			summary.Bytes += r.Size
		}
	}

	log.InfoWithFields("run finished", map[string]interface{}{
		"downloaded": count,
		"candidates": len(res.URLs),
		"source":     string(res.Source),
		"duration":   summary.Duration,
	})

	if count == 0 {
		return summary, errs.NoDownloads(len(res.URLs))
	}
	return summary, nil
}

// ExitCode maps the outcome of Run to a process exit status: 0 on success,
// 2 when there was nothing to download, 1 for any other failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.Is(err, errs.ErrorTypeEmptyResult):
		return 2
	default:
		return 1
	}
}
