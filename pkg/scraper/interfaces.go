package scraper

import (
	"context"

	"pinscraper/internal/downloader"
	"pinscraper/pkg/resolver"
)

// URLResolver turns a query into candidate image URLs
type URLResolver interface {
	Resolve(ctx context.Context, query string, limit int) *resolver.Resolution
}

// BatchDownloader saves a list of URLs into a directory
type BatchDownloader interface {
	DownloadAll(ctx context.Context, urls []string, destDir string) (int, []downloader.DownloadResult, error)
}
