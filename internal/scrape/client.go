package scrape

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"gradtrack-engine/internal/config"
)

// newClient builds the HTTP client for the source site: per-request timeout,
// retry with backoff on rate-limit and server errors, and a pacing limiter
// applied before every request so the crawl stays courteous.
func newClient(cfg config.Config, limiter *rate.Limiter) *resty.Client {
	c := resty.New()
	c.SetHeader("User-Agent", cfg.Source.UserAgent)
	c.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	c.SetTimeout(cfg.Timeout())

	c.SetRetryCount(2)
	c.SetRetryWaitTime(cfg.BaseDelay())
	c.SetRetryMaxWaitTime(cfg.MaxDelay())
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
	})

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return c
}

// backoff tracks the adaptive delay between detail requests: it grows on
// timeouts and rate-limit responses and decays back toward the base delay on
// success, so a flaky stretch slows the run instead of failing it.
type backoff struct {
	mu   sync.Mutex
	cur  time.Duration
	base time.Duration
	ceil time.Duration
}

func newBackoff(base, ceil time.Duration) *backoff {
	return &backoff{cur: base, base: base, ceil: ceil}
}

func (b *backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

func (b *backoff) Bump() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur *= 2
	if b.cur > b.ceil {
		b.cur = b.ceil
	}
	if b.cur == 0 {
		b.cur = b.ceil
	}
}

func (b *backoff) Ease() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur -= b.cur / 4
	if b.cur < b.base {
		b.cur = b.base
	}
}
