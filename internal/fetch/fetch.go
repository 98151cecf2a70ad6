// Package fetch retrieves JSON documents from user-configured HTTP APIs.
//
// Bodies are cached by URL for the cache's TTL, and concurrent misses for the
// same URL share one upstream request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentic-research/dashlens/internal/cache"
	"github.com/agentic-research/dashlens/internal/config"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/ohler55/ojg/oj"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidJSON is returned when an upstream body is not a JSON document.
	ErrInvalidJSON = errors.New("response is not valid JSON")
	// ErrTooLarge is returned when an upstream body exceeds the size limit.
	ErrTooLarge = errors.New("response body too large")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// Request identifies an upstream document.
type Request struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Options configures a Fetcher. Zero values take the defaults of
// config.DefaultConfig.
type Options struct {
	Client       *http.Client
	Cache        cache.Cache
	Logger       *zap.Logger
	Registerer   prometheus.Registerer
	MaxBodyBytes int64
	UserAgent    string
}

// Fetcher performs cached, coalesced JSON fetches.
type Fetcher struct {
	client    *http.Client
	cache     cache.Cache
	logger    *zap.Logger
	metrics   *metrics
	maxBody   int64
	userAgent string
	group     singleflight.Group
}

// New returns a Fetcher.
func New(opts Options) *Fetcher {
	def := config.DefaultConfig().Fetch
	f := &Fetcher{
		client:    opts.Client,
		cache:     opts.Cache,
		logger:    opts.Logger,
		metrics:   newMetrics(opts.Registerer),
		maxBody:   opts.MaxBodyBytes,
		userAgent: opts.UserAgent,
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 15 * time.Second}
	}
	if f.cache == nil {
		f.cache = cache.Nop{}
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	if f.maxBody <= 0 {
		f.maxBody = def.MaxBodyBytes
	}
	if f.userAgent == "" {
		f.userAgent = def.UserAgent
	}
	return f
}

// NewFromConfig builds a Fetcher whose client timeout, body limit and user
// agent come from cfg.
func NewFromConfig(cfg *config.Config, c cache.Cache, logger *zap.Logger, reg prometheus.Registerer) *Fetcher {
	return New(Options{
		Client:       &http.Client{Timeout: cfg.GetFetchTimeout()},
		Cache:        c,
		Logger:       logger,
		Registerer:   reg,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		UserAgent:    cfg.Fetch.UserAgent,
	})
}

// Fetch returns the parsed document at req.URL.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (jsonval.Value, error) {
	body, err := f.FetchRaw(ctx, req)
	if err != nil {
		return jsonval.Value{}, err
	}
	doc, err := jsonval.Parse(body)
	if err != nil {
		return jsonval.Value{}, fmt.Errorf("parse %s: %w", req.URL, err)
	}
	return doc, nil
}

// FetchRaw returns the validated JSON body at req.URL, from the cache when
// it holds a fresh copy.
func (f *Fetcher) FetchRaw(ctx context.Context, req Request) ([]byte, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("fetch: empty url")
	}
	if body, ok := f.cached(ctx, req.URL); ok {
		return body, nil
	}
	v, err, shared := f.group.Do(req.URL, func() (any, error) {
		body, err := f.get(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := f.cache.Put(ctx, req.URL, body); err != nil {
			f.metrics.cacheErrors.Inc()
			f.logger.Warn("cache put failed", zap.String("url", req.URL), zap.Error(err))
		}
		return body, nil
	})
	if shared {
		f.metrics.shared.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) cached(ctx context.Context, url string) ([]byte, bool) {
	body, ok, err := f.cache.Get(ctx, url)
	if err != nil {
		f.metrics.cacheErrors.Inc()
		f.logger.Warn("cache get failed", zap.String("url", url), zap.Error(err))
		return nil, false
	}
	if !ok {
		f.metrics.cacheMisses.Inc()
		return nil, false
	}
	f.metrics.cacheHits.Inc()
	return body, true
}

func (f *Fetcher) get(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", req.URL, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", f.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	f.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		f.metrics.requests.WithLabelValues(outcomeNetwork).Inc()
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metrics.requests.WithLabelValues(outcomeHTTPError).Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		f.logger.Debug("upstream error", zap.String("url", req.URL), zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Code: resp.StatusCode, Status: statusText(resp)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		f.metrics.requests.WithLabelValues(outcomeNetwork).Inc()
		return nil, fmt.Errorf("read %s: %w", req.URL, err)
	}
	if int64(len(body)) > f.maxBody {
		f.metrics.requests.WithLabelValues(outcomeTooLarge).Inc()
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", req.URL, ErrTooLarge, f.maxBody)
	}
	validator := oj.Validator{OnlyOne: true}
	if err := validator.Validate(body); err != nil {
		f.metrics.requests.WithLabelValues(outcomeInvalidJSON).Inc()
		return nil, fmt.Errorf("fetch %s: %w: %v", req.URL, ErrInvalidJSON, err)
	}

	f.metrics.requests.WithLabelValues(outcomeOK).Inc()
	f.logger.Debug("fetched",
		zap.String("url", req.URL),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
	return body, nil
}

// statusText is the reason phrase of resp, or the standard text for its code.
func statusText(resp *http.Response) string {
	if s := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); s != "" && s != resp.Status {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
