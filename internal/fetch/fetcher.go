package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"grifttracker/internal/config"
	"grifttracker/internal/models"
)

// Error classifies a fetch failure. Transient failures (timeouts, 429,
// 5xx) are retried with backoff; permanent ones (404 and other 4xx) are
// logged and skipped.
type Error struct {
	URL       string
	Status    int
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a fetch error worth retrying.
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return false
}

// Fetcher retrieves raw payloads with per-source token-bucket rate limits,
// exponential backoff with jitter, and payload caching.
type Fetcher struct {
	client *http.Client
	cache  Cache
	logger *zap.Logger
	cfg    config.FetchConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(cfg config.FetchConfig, cache Cache, logger *zap.Logger) *Fetcher {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
		limiters: map[string]*rate.Limiter{},
	}
}

// Fetch retrieves the payload for a source descriptor. Requests against the
// same source serialize through that source's limiter; independent sources
// may fetch concurrently.
func (f *Fetcher) Fetch(ctx context.Context, desc models.SourceDescriptor) ([]byte, error) {
	return f.FetchURL(ctx, desc, desc.Endpoint)
}

// FetchURL is Fetch for a follow-up document under the same descriptor
// (e.g. an individual filing listed by the index payload).
func (f *Fetcher) FetchURL(ctx context.Context, desc models.SourceDescriptor, url string) ([]byte, error) {
	if url == "" {
		return nil, &Error{URL: url, Err: errors.New("empty endpoint")}
	}

	cacheKey := "fetch:" + desc.Name + ":" + url
	if body, ok := f.cache.Get(ctx, cacheKey); ok {
		return body, nil
	}

	limiter := f.limiterFor(desc)

	attempts := f.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := f.cfg.BackoffBase
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := f.doRequest(ctx, desc, url)
		if err == nil {
			_ = f.cache.Set(ctx, cacheKey, body, f.cfg.CacheTTL)
			return body, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}

		if attempt < attempts-1 {
			sleep := backoff + time.Duration(rand.Int63n(int64(backoff)))
			if f.cfg.BackoffMax > 0 && sleep > f.cfg.BackoffMax {
				sleep = f.cfg.BackoffMax
			}
			if f.logger != nil {
				f.logger.Debug("fetch retry",
					zap.String("source", desc.Name),
					zap.String("url", url),
					zap.Duration("sleep", sleep),
					zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleep):
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

func (f *Fetcher) doRequest(ctx context.Context, desc models.SourceDescriptor, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	if desc.AuthTokenEnv != "" {
		if token := os.Getenv(desc.AuthTokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		transient := errors.As(err, &netErr) && netErr.Timeout()
		if errors.Is(err, context.DeadlineExceeded) {
			transient = true
		}
		return nil, &Error{URL: url, Transient: transient, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{URL: url, Transient: true, Err: err}
		}
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &Error{URL: url, Status: resp.StatusCode, Transient: true}
	default:
		return nil, &Error{URL: url, Status: resp.StatusCode, Transient: false}
	}
}

func (f *Fetcher) limiterFor(desc models.SourceDescriptor) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[desc.Name]; ok {
		return lim
	}

	requests := desc.RateLimit
	period := f.cfg.DefaultPeriod
	if requests <= 0 {
		requests = f.cfg.DefaultRate
	}
	if desc.RatePeriod != "" {
		if d, err := time.ParseDuration(desc.RatePeriod); err == nil && d > 0 {
			period = d
		}
	}
	if requests <= 0 {
		requests = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	burst := f.cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}

	lim := rate.NewLimiter(rate.Every(period/time.Duration(requests)), burst)
	f.limiters[desc.Name] = lim
	return lim
}
