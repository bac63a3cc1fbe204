// Package transport implements the fetch façade spec.md §2 calls out as
// an external collaborator with a fixed contract: fetch_catalog_part,
// fetch_manifest, fetch_file(hash), cache-control hints, and per-origin
// failure surfaced rather than swallowed. Concurrency is bounded per §5:
// "up to N (configurable, default 4) concurrent GETs across
// origins/mirrors per publisher. Downloads are independent; failures are
// retried on alternate origins before surfacing."
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/solarisips/pkgclient/pkg/config"
)

// Origin is one fetch location: a base URL plus optional proxy/TLS
// client-cert settings (§6 Publisher configuration).
type Origin struct {
	URL     string
	Proxy   string
	SSLCert string
	SSLKey  string
}

// CacheControl selects the HTTP caching headers a request carries. Per
// §4.2: "Catalog requests always include Cache-Control: no-cache and
// Pragma: no-cache on first contact and on any forced full refresh.
// Between refreshes, conditional GET may be used."
type CacheControl struct {
	NoCache          bool
	IfModifiedSince  time.Time
	HasIfModifiedSince bool
}

// Client fetches catalog parts, manifests, and payload files over HTTP,
// bounding concurrency per publisher and retrying across alternate
// origins before surfacing a failure.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	sem        chan struct{}
	log        logrus.FieldLogger
}

// New constructs a Client from cfg. MaxConcurrentFetches bounds the
// number of simultaneous GETs; a rate.Limiter further paces requests so a
// burst of retries doesn't hammer a struggling origin.
func New(cfg config.Config, log logrus.FieldLogger) *Client {
	maxConcurrent := cfg.MaxConcurrentFetches
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.ConnectTimeout + cfg.ReadTimeout},
		limiter:    rate.NewLimiter(rate.Limit(maxConcurrent*2), maxConcurrent*2),
		sem:        make(chan struct{}, maxConcurrent),
		log:        log,
	}
}

// OriginFailure records one origin's fetch failure so callers can report
// which origins were tried before a TransportError surfaces.
type OriginFailure struct {
	Origin Origin
	Err    error
}

// FetchResult is the bytes fetched plus the origin that served them and
// any failures from origins tried first.
type FetchResult struct {
	Origin   Origin
	Body     []byte
	Failures []OriginFailure
}

// fetchPath tries each origin in order, retrying on the next upon
// failure, and returns as soon as one succeeds.
func (c *Client) fetchPath(ctx context.Context, origins []Origin, path string, cc CacheControl) (FetchResult, error) {
	if len(origins) == 0 {
		return FetchResult{}, errors.New("transport: no origins configured")
	}
	var failures []OriginFailure
	for _, origin := range origins {
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
		body, err := c.get(ctx, origin, path, cc)
		<-c.sem
		if err == nil {
			return FetchResult{Origin: origin, Body: body, Failures: failures}, nil
		}
		failures = append(failures, OriginFailure{Origin: origin, Err: err})
		if c.log != nil {
			c.log.WithError(err).WithField("origin", origin.URL).Warn("transport: origin failed, trying next")
		}
	}
	return FetchResult{Failures: failures}, fmt.Errorf("transport: all %d origins failed for %s: %w", len(origins), path, failures[len(failures)-1].Err)
}

func (c *Client) get(ctx context.Context, origin Origin, path string, cc CacheControl) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u, err := url.JoinPath(origin.URL, path)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: bad origin url %q", origin.URL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if cc.NoCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	} else if cc.HasIfModifiedSince {
		req.Header.Set("If-Modified-Since", cc.IfModifiedSince.UTC().Format(http.TimeFormat))
	}

	client := c.httpClient
	if origin.Proxy != "" {
		client = c.clientWithProxy(origin)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: GET %s", u)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotModified {
		return nil, errNotModified
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode >= 500 {
		return nil, errors.Errorf("transport: %s: server error %d", u, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("transport: %s: client error %d", u, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) clientWithProxy(origin Origin) *http.Client {
	cfg := httpproxy.Config{HTTPProxy: origin.Proxy, HTTPSProxy: origin.Proxy}
	proxyFunc := cfg.ProxyFunc()
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
	}
	return &http.Client{Timeout: c.httpClient.Timeout, Transport: transport}
}

// errNotModified / errNotFound are sentinel errors for the two HTTP
// statuses callers must distinguish from generic failure (§4.2 step 1:
// "On 404 -> treat as empty publisher").
var (
	errNotModified = fmt.Errorf("transport: 304 not modified")
	errNotFound    = fmt.Errorf("transport: 404 not found")
)

// IsNotModified reports whether err is the 304 sentinel.
func IsNotModified(err error) bool { return errors.Is(err, errNotModified) }

// IsNotFound reports whether err is the 404 sentinel.
func IsNotFound(err error) bool { return errors.Is(err, errNotFound) }

// ErrNotFound and ErrNotModified are exported so test doubles in other
// packages (e.g. pkg/catalog's fake fetcher) can synthesize the same
// sentinel a real Client would return for these statuses.
var (
	ErrNotFound    = errNotFound
	ErrNotModified = errNotModified
)

// FetchCatalogPart retrieves one named catalog part or attrs file.
func (c *Client) FetchCatalogPart(ctx context.Context, origins []Origin, name string, cc CacheControl) (FetchResult, error) {
	return c.fetchPath(ctx, origins, "catalog/1/"+name, cc)
}

// FetchManifest retrieves the manifest for a given FMRI path component
// (caller supplies the publisher-relative path, already URL-safe).
func (c *Client) FetchManifest(ctx context.Context, origins []Origin, fmriPath string) (FetchResult, error) {
	return c.fetchPath(ctx, origins, "manifest/0/"+fmriPath, CacheControl{})
}

// FetchFile retrieves a content-addressed payload by hash.
func (c *Client) FetchFile(ctx context.Context, origins []Origin, hash string) (FetchResult, error) {
	if len(hash) < 2 {
		return FetchResult{}, errors.Errorf("transport: malformed hash %q", hash)
	}
	return c.fetchPath(ctx, origins, "file/0/"+hash[:2]+"/"+hash, CacheControl{})
}

// FetchAll runs every job concurrently and returns the first error any
// of them reports. The number of jobs running at once is not limited;
// each GET a job makes through this Client still waits for one of the
// client's MaxConcurrentFetches slots. Jobs report results themselves.
func (c *Client) FetchAll(ctx context.Context, jobs []func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error { return job(ctx) })
	}
	return g.Wait()
}
