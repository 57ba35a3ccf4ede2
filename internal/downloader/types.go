package downloader

import (
	"context"
	"io"
	"time"
)

// DownloadJob represents a single download task
type DownloadJob struct {
	// Index is the 1-based position of URL in the candidate list
	Index    int
	URL      string
	FileName string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Success  bool
	Err      error
	Attempts int
	Size     int64
	Duration time.Duration
}

// ImageDownloader fetches one image into store
type ImageDownloader interface {
	DownloadImage(ctx context.Context, job DownloadJob, store ImageStore) DownloadResult
}

// ImageStore persists downloaded bytes at positional names
type ImageStore interface {
	FileName(index int) string
	Save(r io.Reader, index int) (int64, error)
}
