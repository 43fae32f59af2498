// Package collyfetcher downloads archived pages with a gocolly collector.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-journey/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// MaxBodyBytes caps response bodies; zero keeps colly's default.
	MaxBodyBytes int
}

// Response is one downloaded page.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	// CapturedAt is the Memento-Datetime of an archive capture, if any.
	CapturedAt string
}

// Waiter paces outgoing requests.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher downloads one page per call.
type Fetcher struct {
	cfg     Config
	pacer   Waiter
	logger  *zap.Logger
	archive *colly.Collector
}

// New builds a Fetcher. pacer may be nil to disable pacing.
func New(cfg Config, pacer Waiter, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base := colly.NewCollector(colly.Async(false))
	base.WithTransport(archiveTransport())
	return &Fetcher{cfg: cfg, pacer: pacer, logger: logger.Named("fetcher"), archive: base}
}

// Fetch downloads pageURL. A status of 400 or above is an error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Response, error) {
	if f.pacer != nil {
		if err := f.pacer.Wait(ctx, pageURL); err != nil {
			return Response{}, err
		}
	}

	v := &visit{start: time.Now()}
	c := f.collector()
	v.attach(c)

	if err := v.run(ctx, c, pageURL); err != nil {
		metrics.ObserveFetch(pageURL, "error", 0)
		f.logger.Debug("page download failed", zap.String("url", pageURL), zap.Error(err))
		return Response{}, err
	}
	metrics.ObserveFetch(pageURL, strconv.Itoa(v.resp.StatusCode), len(v.resp.Body))
	return v.resp, nil
}

// collector clones the shared base so each call gets its own callbacks.
func (f *Fetcher) collector() *colly.Collector {
	c := f.archive.Clone()
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !f.cfg.RespectRobots
	// Later stages revisit pages that discovery already read.
	c.AllowURLRevisit = true
	if f.cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = f.cfg.MaxBodyBytes
	}
	c.SetRequestTimeout(f.cfg.Timeout)
	return c
}

type callbackRegistrar interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type visit struct {
	start time.Time
	resp  Response
	err   error
}

func (v *visit) attach(c callbackRegistrar) {
	c.OnResponse(v.onResponse)
	c.OnError(v.onError)
}

func (v *visit) onResponse(r *colly.Response) {
	headers := http.Header{}
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}
	v.resp = Response{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(v.start),
		CapturedAt: headers.Get("Memento-Datetime"),
	}
}

func (v *visit) onError(r *colly.Response, err error) {
	if r != nil && r.StatusCode > 0 {
		v.err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		return
	}
	v.err = err
}

func (v *visit) run(ctx context.Context, c *colly.Collector, pageURL string) error {
	done := make(chan error, 1)
	go func() { done <- c.Visit(pageURL) }()

	var err error
	select {
	case <-ctx.Done():
		return fmt.Errorf("download %s: %w", pageURL, ctx.Err())
	case err = <-done:
	}
	switch {
	case v.err != nil:
		return fmt.Errorf("download %s: %w", pageURL, v.err)
	case err != nil:
		return fmt.Errorf("visit %s: %w", pageURL, err)
	}
	return nil
}

func archiveTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}
}
