package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leyningapp/leyn/internal/cache"
	"github.com/leyningapp/leyn/leyning"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies content requests.
	DefaultUserAgent = "leyn (+https://github.com/leyningapp/leyn)"

	// DefaultTimeout bounds a single content request.
	DefaultTimeout = 30 * time.Second

	maxContentSize = 64 << 20
)

type httpBackend struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	cache     *cache.Tiered
}

// HTTPOption configures an HTTP store.
type HTTPOption func(*httpBackend)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(b *httpBackend) {
		b.client = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(b *httpBackend) {
		b.userAgent = ua
	}
}

// NewHTTPStore returns a Store fetching files below baseURL. Responses are
// kept in a memory cache and, when cfg.DiskDir is set, a compressed disk
// cache. Requests are rate limited to cfg.FetchRate per second.
func NewHTTPStore(baseURL string, cfg leyning.CacheConfig, opts ...HTTPOption) (*Store, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.MemoryEntries = cfg.ContentEntries
	cacheConfig.DiskPath = cfg.DiskDir
	cacheConfig.DiskCapacity = cfg.DiskMaxSize

	tiered, err := cache.NewTiered(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}

	b := &httpBackend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: DefaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.FetchRate), cfg.FetchBurst),
		cache:     tiered,
	}
	for _, opt := range opts {
		opt(b)
	}

	s, err := newStore(b, cfg.ContentEntries)
	if err != nil {
		tiered.Close()
		return nil, err
	}
	return s, nil
}

func (b *httpBackend) fetch(ctx context.Context, rel string) ([]byte, error) {
	if data, ok := b.cache.Get(rel); ok {
		return data, nil
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := b.baseURL + "/" + rel
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "application/json, application/zstd")

	log.Debug("fetching content", "url", reqURL)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("%w: %s", leyning.ErrContentUnavailable, rel)
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status: %d", rel, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	b.cache.Put(rel, data)
	return data, nil
}

func (b *httpBackend) close() error {
	return b.cache.Close()
}
