package downloader

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinscraper/internal/testutils"
	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/httpclient"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/storage"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// countingLimiter records every Wait call
type countingLimiter struct {
	waits int32
}

func (c *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&c.waits, 1)
	return ctx.Err()
}

// newClient returns a client without transport retries so status sequences
// reach the download layer unchanged.
func newClient() *httpclient.Client {
	opts := httpclient.DefaultOptions()
	opts.MaxRetries = 0
	return httpclient.New(opts, nil)
}

func newManager(opts Options) (*Manager, *sleepRecorder) {
	rec := &sleepRecorder{}
	opts.Sleep = rec.Sleep
	return NewManager(newClient(), nil, opts, logger.NewTestLogger()), rec
}

func newStore(t *testing.T) (*storage.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir, storage.DefaultFileNamePattern)
	require.NoError(t, err)
	return store, dir
}

func TestDownloadImageRetriesRateLimited(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	url := server.AddImage("a.jpg", []byte("cat"), http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK)

	opts := DefaultOptions()
	opts.BackoffFactor = 1.5
	m, rec := newManager(opts)
	store, dir := newStore(t)

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)

	require.True(t, result.Success, "error: %v", result.Err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int64(3), result.Size)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 3 * time.Second}, rec.Delays())
	assert.Equal(t, 3, server.ImageCalls("a.jpg"))
	testutils.AssertFileContains(t, filepath.Join(dir, "image_1.jpg"), "cat")
}

func TestDownloadImageNotFound(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	url := server.AddImage("gone.jpg", nil, http.StatusNotFound, http.StatusOK)

	m, rec := newManager(DefaultOptions())
	store, dir := newStore(t)

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, errs.Is(result.Err, errs.ErrorTypeUnexpectedStatus))
	assert.Empty(t, rec.Delays())
	assert.Equal(t, 1, server.ImageCalls("gone.jpg"))
	testutils.AssertDirContainsFiles(t, dir, 0)
}

func TestDownloadImageRateLimitExhausted(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	url := server.AddImage("blocked.jpg", nil, http.StatusForbidden)

	m, rec := newManager(DefaultOptions())
	store, _ := newStore(t)

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.True(t, errs.Is(result.Err, errs.ErrorTypeRateLimited))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Delays())
}

func TestDownloadImageTransportErrorNotRetried(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	url := server.AddImage("a.jpg", []byte("x"))
	server.Close()

	m, rec := newManager(DefaultOptions())
	store, _ := newStore(t)

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, errs.Is(result.Err, errs.ErrorTypeTransport))
	assert.Empty(t, rec.Delays())
}

func TestDownloadImageStorageFailure(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	url := server.AddImage("a.jpg", []byte("x"))

	m, rec := newManager(DefaultOptions())
	store := NewMockStore()
	store.saveError = errors.New("disk full")

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, errs.Is(result.Err, errs.ErrorTypeStorage))
	assert.Empty(t, rec.Delays())
}

func TestDownloadAllPartialFailure(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	urls := []string{
		server.AddImage("a.jpg", []byte("A"), http.StatusOK),
		server.AddImage("b.jpg", nil, http.StatusForbidden, http.StatusForbidden, http.StatusForbidden),
		server.AddImage("c.jpg", []byte("C"), http.StatusOK),
	}

	opts := DefaultOptions()
	opts.MaxRetries = 3
	m, _ := newManager(opts)
	dir := filepath.Join(t.TempDir(), "nested", "out")

	count, results, err := m.DownloadAll(context.Background(), urls, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, 3, results[1].Attempts)
	assert.True(t, errs.Is(results[1].Err, errs.ErrorTypeRateLimited))
	assert.True(t, results[2].Success)
	assert.Equal(t, "image_2.jpg", results[1].Job.FileName)

	testutils.AssertDirContainsFiles(t, dir, 2)
	testutils.AssertFileContains(t, filepath.Join(dir, "image_1.jpg"), "A")
	testutils.AssertFileContains(t, filepath.Join(dir, "image_3.jpg"), "C")
	_, statErr := os.Stat(filepath.Join(dir, "image_2.jpg"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 3, server.ImageCalls("b.jpg"))
}

func TestDownloadAllIsIdempotent(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	urls := []string{
		server.AddImage("a.jpg", []byte("A")),
		server.AddImage("b.jpg", []byte("B")),
	}

	m, _ := newManager(DefaultOptions())
	dir := t.TempDir()

	for run := 0; run < 2; run++ {
		count, _, err := m.DownloadAll(context.Background(), urls, dir)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	}

	testutils.AssertDirContainsFiles(t, dir, 2)
	testutils.AssertFileContains(t, filepath.Join(dir, "image_2.jpg"), "B")
}

func TestDownloadAllEmpty(t *testing.T) {
	m, _ := newManager(DefaultOptions())
	dir := filepath.Join(t.TempDir(), "out")

	count, results, err := m.DownloadAll(context.Background(), nil, dir)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, results)
	assert.DirExists(t, dir)
}

func TestDownloadAllDestinationError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	m, _ := newManager(DefaultOptions())
	_, _, err := m.DownloadAll(context.Background(), []string{"http://127.0.0.1/x"}, filepath.Join(file, "out"))

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeStorage))
}

func TestDownloadAllUsesLimiter(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	urls := []string{
		server.AddImage("a.jpg", []byte("A"), http.StatusTooManyRequests, http.StatusOK),
		server.AddImage("b.jpg", []byte("B")),
	}

	limiter := &countingLimiter{}
	opts := DefaultOptions()
	opts.Sleep = (&sleepRecorder{}).Sleep
	m := NewManager(newClient(), limiter, opts, nil)

	count, _, err := m.DownloadAll(context.Background(), urls, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int32(3), atomic.LoadInt32(&limiter.waits), "one wait per attempt")
}

func TestDownloadAllConcurrentBackoffDoesNotBlockOthers(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()

	names := []string{"slow.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"}
	urls := []string{server.AddImage(names[0], []byte("S"), http.StatusTooManyRequests, http.StatusOK)}
	for _, name := range names[1:] {
		urls = append(urls, server.AddImage(name, []byte(name)))
	}

	release := make(chan struct{})
	opts := DefaultOptions()
	opts.Workers = 2
	opts.Sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m := NewManager(newClient(), nil, opts, nil)

	type outcome struct {
		count   int
		results []DownloadResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		count, results, err := m.DownloadAll(context.Background(), urls, t.TempDir())
		done <- outcome{count, results, err}
	}()

	// While one worker sits in backoff the other drains the rest
	assert.Eventually(t, func() bool {
		for _, name := range names[1:] {
			if server.ImageCalls(name) != 1 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
	close(release)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, len(urls), out.count)
	for i, r := range out.results {
		assert.Equal(t, i+1, r.Job.Index)
		assert.True(t, r.Success)
	}
	assert.Equal(t, 2, server.ImageCalls("slow.jpg"))
}

func TestDownloadAllCancelled(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	urls := []string{
		server.AddImage("a.jpg", []byte("A")),
		server.AddImage("b.jpg", []byte("B")),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _ := newManager(DefaultOptions())
	count, results, err := m.DownloadAll(ctx, urls, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, count)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Error(t, r.Err)
	}
	assert.Zero(t, server.ImageCalls("a.jpg"))
}

func TestDownloadImageLogsRetries(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	url := server.AddImage("a.jpg", []byte("cat"), http.StatusForbidden, http.StatusOK)

	log := logger.NewTestLogger()
	opts := DefaultOptions()
	opts.Sleep = (&sleepRecorder{}).Sleep
	m := NewManager(newClient(), nil, opts, log)
	store, _ := newStore(t)

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)
	require.True(t, result.Success, "error: %v", result.Err)

	var retries []logger.LogMessage
	for _, msg := range log.GetMessagesByLevel("WARN") {
		if msg.Message == "access denied, retrying image" {
			retries = append(retries, msg)
		}
	}
	require.Len(t, retries, 1)
	assert.Equal(t, http.StatusForbidden, retries[0].Fields["status"])
	assert.Equal(t, 1, retries[0].Fields["attempt"])
	assert.Equal(t, url, retries[0].Fields["url"])
}

func TestDownloadImageBackoffIsCapped(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	url := server.AddImage("blocked.jpg", nil, http.StatusTooManyRequests)

	opts := DefaultOptions()
	opts.MaxRetries = 80
	opts.MaxBackoff = 5 * time.Second
	m, rec := newManager(opts)
	store, _ := newStore(t)

	result := m.DownloadImage(context.Background(), DownloadJob{Index: 1, URL: url}, store)

	assert.False(t, result.Success)
	assert.Equal(t, 80, result.Attempts)
	delays := rec.Delays()
	require.Len(t, delays, 79)
	for i, d := range delays {
		assert.Positive(t, int64(d), "wait %d", i)
		assert.LessOrEqual(t, d, 5*time.Second, "wait %d", i)
	}
	assert.Equal(t, 5*time.Second, delays[78])
}
