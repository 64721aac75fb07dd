package dataset

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"insightcli/internal/config"
)

// Fetcher downloads dataset files with retry and per-host rate limiting.
// Downloads are cached on disk when a cache directory is configured, keyed by
// source id.
type Fetcher struct {
	client   *http.Client
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
	retries  int
	wait     time.Duration
	cacheDir string
	logger   *slog.Logger
}

// NewFetcher creates a fetcher from configuration.
func NewFetcher(cfg config.FetchConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiters: make(map[string]*rate.Limiter),
		rps:      cfg.RatePerSec,
		burst:    cfg.Burst,
		retries:  cfg.Retries,
		wait:     cfg.RetryWait,
		cacheDir: cfg.CacheDir,
		logger:   logger,
	}
}

// limiterFor returns the rate limiter for a host, creating it on first use.
func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.rps), f.burst)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch returns the raw bytes of the source, from cache when available.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if f.cacheDir != "" {
		if data, err := os.ReadFile(f.cachePath(src)); err == nil {
			f.logger.DebugContext(ctx, "dataset served from cache",
				"dataset", src.ID, "bytes", len(data))
			return data, nil
		}
	}

	data, err := f.download(ctx, src)
	if err != nil {
		return nil, err
	}

	if f.cacheDir != "" {
		if err := f.writeCache(src, data); err != nil {
			f.logger.WarnContext(ctx, "failed to cache dataset",
				"dataset", src.ID, "error", err)
		}
	}

	return data, nil
}

func (f *Fetcher) download(ctx context.Context, src Source) ([]byte, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: parse url: %w", src.ID, err)
	}
	limiter := f.limiterFor(u.Host)

	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch %s: %w", src.ID, ctx.Err())
			case <-time.After(f.wait * time.Duration(attempt)):
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: rate limit wait: %w", src.ID, err)
		}

		data, err := f.attempt(ctx, src.URL)
		if err != nil {
			lastErr = err
			f.logger.WarnContext(ctx, "dataset fetch attempt failed",
				"dataset", src.ID,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		f.logger.InfoContext(ctx, "dataset fetched",
			"dataset", src.ID,
			"bytes", len(data),
			"sha256", fmt.Sprintf("%x", sha256.Sum256(data))[:12],
		)
		return data, nil
	}

	return nil, fmt.Errorf("fetch %s after %d attempts: %w", src.ID, f.retries+1, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

func (f *Fetcher) cachePath(src Source) string {
	return filepath.Join(f.cacheDir, fmt.Sprintf("%s.%s", src.ID, src.Format))
}

func (f *Fetcher) writeCache(src Source, data []byte) error {
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(f.cachePath(src), data, 0644)
}
