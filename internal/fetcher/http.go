package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/regioncheck/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration // base backoff between attempts
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher over net/http with retry and per-host
// rate limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	retry    resilience.Policy
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
}

// DefaultRateLimiters returns per-host limiters for the archive hosts
// shapefiles usually come from.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www2.census.gov": rate.NewLimiter(4, 4),
		"ftp2.census.gov": rate.NewLimiter(4, 4),
		"naciscdn.org":    rate.NewLimiter(4, 4),
	}
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		// Archives run to hundreds of MB; the request ctx can still cut
		// a transfer short.
		opts.Timeout = 10 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryWait == 0 {
		opts.RetryWait = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "regioncheck/1.0"
	}

	limiters := DefaultRateLimiters()
	for host, lim := range opts.RateLimiters {
		limiters[host] = lim
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		retry:    resilience.Policy{MaxAttempts: opts.MaxRetries, BaseWait: opts.RetryWait},
		limiters: limiters,
		fallback: rate.NewLimiter(8, 8),
	}
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *rate.Limiter {
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL)

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt, 0)
			continue
		}

		if resilience.RetryableStatus(resp.StatusCode) {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("retryable status, backing off",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt, retryAfter)
			continue
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

// parseRetryAfter reads the delay-seconds form of Retry-After. The HTTP
// date form is rare on archive hosts and falls back to exponential wait.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int, minWait time.Duration) {
	d := f.retry.Backoff(attempt)
	if d < minWait {
		d = minWait
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download fetches the URL and returns the response body. The caller
// must close it.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "download %s", rawURL)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to path. Returns bytes
// written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	n, err := saveTo(path, body)
	if err != nil {
		return n, err
	}

	zap.L().Info("downloaded archive",
		zap.String("url", rawURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}
