package downloader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/httpclient"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/ratelimit"
	"pinscraper/pkg/retry"
	"pinscraper/pkg/storage"
)

// Options configures the per-image retry policy and concurrency
type Options struct {
	// MaxRetries is the total number of attempts per image
	MaxRetries int
	// BackoffFactor in seconds; after failed attempt i (0-indexed) the
	// manager waits BackoffFactor * 2^i
	BackoffFactor float64
	// MaxBackoff caps a single wait; defaults to DefaultMaxBackoff
	MaxBackoff time.Duration
	// Workers is the number of concurrent downloads
	Workers int
	// FileNamePattern names files by position, see storage.IndexPlaceholder
	FileNamePattern string
	// Sleep waits between attempts; defaults to retry.Wait
	Sleep retry.SleepFunc
}

// DefaultMaxBackoff caps the wait between two attempts on one image
const DefaultMaxBackoff = 120 * time.Second

// DefaultOptions returns the download policy used when nothing is configured
func DefaultOptions() Options {
	return Options{
		MaxRetries:      3,
		BackoffFactor:   1.0,
		MaxBackoff:      DefaultMaxBackoff,
		Workers:         1,
		FileNamePattern: storage.DefaultFileNamePattern,
	}
}

// Manager downloads images with retry on rate-limit answers
type Manager struct {
	client  *httpclient.Client
	limiter ratelimit.Limiter
	opts    Options
	logger  logger.Logger
}

// NewManager creates a download manager. A nil limiter means unlimited.
func NewManager(client *httpclient.Client, limiter ratelimit.Limiter, opts Options, log logger.Logger) *Manager {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Wait
	}
	return &Manager{
		client:  client,
		limiter: limiter,
		opts:    opts,
		logger:  logger.OrNop(log),
	}
}

// DownloadAll downloads urls into destDir as image_1, image_2, ... and
// returns the number of images written. Individual failures are reported in
// the results only; the error is non-nil only when destDir cannot be created.
func (m *Manager) DownloadAll(ctx context.Context, urls []string, destDir string) (int, []DownloadResult, error) {
	store, err := storage.NewManager(destDir, m.opts.FileNamePattern)
	if err != nil {
		return 0, nil, errs.Storage(err)
	}

	start := time.Now()
	results := make([]DownloadResult, len(urls))
	for i, u := range urls {
		results[i].Job = DownloadJob{Index: i + 1, URL: u, FileName: store.FileName(i + 1)}
	}

	workers := m.opts.Workers
	if workers > len(urls) {
		workers = len(urls)
	}

	if workers > 0 {
		pool := NewWorkerPool(ctx, workers, m, store, m.logger)
		pool.Start()

		go func() {
			defer pool.Stop()
			for _, r := range results {
				if err := pool.Submit(r.Job); err != nil {
					return
				}
			}
		}()

		for r := range pool.Results() {
			results[r.Job.Index-1] = r
		}
	}

	count := 0
	for i := range results {
		if results[i].Success {
			count++
			continue
		}
		if results[i].Attempts == 0 && results[i].Err == nil {
			// never handed to a worker
			results[i].Err = notAttempted(ctx)
		}
	}

	m.logger.InfoWithFields("downloads finished", map[string]interface{}{
		"downloaded": count,
		"written":    store.GetSavedCount(),
		"total":      len(urls),
		"output_dir": store.GetOutputDir(),
		"duration":   time.Since(start),
	})

	return count, results, nil
}

// DownloadImage fetches job.URL into store. A 200 answer is written at the
// job's position, 403 and 429 are retried with backoff, any other status and
// any transport failure abort the job.
func (m *Manager) DownloadImage(ctx context.Context, job DownloadJob, store ImageStore) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}
	log := m.logger.WithFields(map[string]interface{}{
		"url":   job.URL,
		"index": job.Index,
	})

	backoff := retry.FactorBackoff(m.opts.BackoffFactor)
	backoff.MaxDelay = m.opts.MaxBackoff

	size, err := retry.DoWithResult(func() (int64, error) {
		result.Attempts++
		return m.attempt(ctx, job, store)
	}, &retry.Config{
		MaxAttempts: m.opts.MaxRetries,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.WarnWithFields("access denied, retrying image", map[string]interface{}{
				"status":   statusOf(err),
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
			})
		},
		Sleep:   m.opts.Sleep,
		Context: ctx,
		Logger:  log,
	})

	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		log.ErrorWithFields("skipping image after persistent block or error", map[string]interface{}{
			"attempts": result.Attempts,
			"error":    err.Error(),
		})
		return result
	}

	result.Success = true
	result.Size = size
	log.InfoWithFields("image downloaded", map[string]interface{}{
		"file":     job.FileName,
		"size":     result.Size,
		"attempts": result.Attempts,
		"duration": result.Duration,
	})
	return result
}

// attempt performs one GET and classifies its outcome
func (m *Manager) attempt(ctx context.Context, job DownloadJob, store ImageStore) (int64, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return 0, errs.Transport(err)
	}

	resp, err := m.client.Get(ctx, job.URL)
	if err != nil {
		m.logger.WarnWithFields("network error downloading image", map[string]interface{}{
			"url":   job.URL,
			"error": err.Error(),
		})
		if errs.TypeOf(err) == "" {
			err = errs.Transport(err)
		}
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := errs.ClassifyStatus(resp.StatusCode)
		if statusErr.Type != errs.ErrorTypeRateLimited {
			m.logger.WarnWithFields("unexpected status, skipping image", map[string]interface{}{
				"url":    job.URL,
				"status": resp.StatusCode,
			})
		}
		return 0, statusErr
	}

	body := &readErrRecorder{r: resp.Body}
	n, err := store.Save(body, job.Index)
	if err != nil {
		if body.err != nil {
			return n, errs.Transport(body.err)
		}
		return n, errs.Storage(err)
	}
	return n, nil
}

// readErrRecorder remembers a read failure so a broken connection is not
// mistaken for a write failure.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (r *readErrRecorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = err
	}
	return n, err
}

func statusOf(err error) int {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func notAttempted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Transport(err)
	}
	return errs.Transport(errors.New("download not attempted"))
}
