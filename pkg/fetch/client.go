package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/mapstack/pkg/buildinfo"
	"github.com/matzehuels/mapstack/pkg/cache"
	"github.com/matzehuels/mapstack/pkg/observability"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// maxBody caps the size of a fetched document.
var maxBody = 32 << 20

var (
	// ErrNotFound is returned when the server answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")

	// ErrTooLarge is returned when a document exceeds the size cap.
	ErrTooLarge = errors.New("document too large")
)

// Options configures a [Client]. The zero value is usable: no cache, no
// retries, [DefaultTimeout].
type Options struct {
	Cache   cache.Cache
	TTL     time.Duration     // Cache lifetime of a document; 0 keeps it until cleared
	Headers map[string]string // Sent with every request
	Retries int               // Extra attempts for 5xx and transport errors
	Timeout time.Duration
	Logger  *log.Logger
}

// Client fetches documents over HTTP with caching and request collapsing.
// It is safe for concurrent use.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	headers map[string]string
	retries int
	logger  *log.Logger
	group   singleflight.Group
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	headers := map[string]string{"User-Agent": "mapstack/" + buildinfo.Version}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		cache:   opts.Cache,
		ttl:     opts.TTL,
		headers: headers,
		retries: max(opts.Retries, 0),
		logger:  opts.Logger,
	}
}

// Get returns the body at rawURL, from cache when fresh.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL, false)
}

// Refresh fetches rawURL bypassing the cache and stores the new body.
func (c *Client) Refresh(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL, true)
}

func (c *Client) get(ctx context.Context, rawURL string, refresh bool) ([]byte, error) {
	key := cache.Key("doc", rawURL)
	host := hostOf(rawURL)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			observability.Fetch().OnCacheHit(ctx, host)
			c.logger.Debug("cache hit", "url", rawURL)
			return data, nil
		}
	}

	// The shared fetch outlives any one caller; each caller stops waiting
	// when its own ctx is done. The client timeout bounds every attempt.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		var body []byte
		err := cache.Retry(fctx, c.retries+1, func() error {
			var err error
			body, err = c.do(fctx, rawURL)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(fctx, key, body, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "url", rawURL, "err", err)
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("request collapsed", "url", rawURL)
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	observability.Fetch().OnRequest(ctx, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.Fetch().OnError(ctx, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	observability.Fetch().OnResponse(ctx, host, path, resp.StatusCode, time.Since(start))
	c.logger.Debug("fetched", "url", rawURL, "status", resp.StatusCode, "took", time.Since(start).Round(time.Millisecond))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBody)+1))
	if err != nil {
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrTooLarge, maxBody)
	}
	return body, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// WithQuery returns rawURL with params set in its query string. Existing
// parameters are kept unless params names them, compared case-insensitively
// as OGC services treat parameter names.
func WithQuery(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k := range q {
		for p := range params {
			if strings.EqualFold(k, p) {
				q.Del(k)
			}
		}
	}
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
