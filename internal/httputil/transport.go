package httputil

import (
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// LimitedTransport is an http.RoundTripper that waits on a shared rate limiter
// before sending, and optionally routes through a fixed proxy.
type LimitedTransport struct {
	Base        http.RoundTripper
	RateLimiter *rate.Limiter
	Proxy       *url.URL
}

// NewLimitedTransport builds a LimitedTransport. proxyURL may be empty.
func NewLimitedTransport(limiter *rate.Limiter, proxyURL string) (*LimitedTransport, error) {
	base := NewBaseTransport()
	t := &LimitedTransport{Base: base, RateLimiter: limiter}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		base.Proxy = http.ProxyURL(u)
		t.Proxy = u
	}
	return t, nil
}

func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}

	transport := t.Base
	if transport == nil {
		transport = http.DefaultTransport
	}
	return transport.RoundTrip(req)
}
