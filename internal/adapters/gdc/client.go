// Package gdc is the client for the GDC (Genomic Data Commons) REST API.
//
// One query core serves every resource: it serializes a filter tree and a
// field list into query-string parameters, issues a single GET, retries
// with exponential backoff on failure, and hands the parsed envelope to a
// per-resource flattener. Results are capped at one page; the API is never
// paginated past that (truncation is logged, not resolved).
package gdc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gdclab/brcaloader/internal/domain/gdcfilter"
	"github.com/gdclab/brcaloader/pkg/logger"
	"github.com/gdclab/brcaloader/pkg/metrics"
)

// Defaults mirror the public GDC deployment and the product's fixed limits.
const (
	defaultBaseURL         = "https://api.gdc.cancer.gov"
	defaultProjectID       = "TCGA-BRCA"
	defaultDataType        = "Gene Expression Quantification"
	defaultPageSize        = 10_000
	defaultMaxRetries      = 3
	defaultQueryTimeout    = 60 * time.Second
	defaultDownloadTimeout = 300 * time.Second
	defaultBackoffBase     = time.Second
)

// Client issues queries and downloads against the GDC API.
type Client struct {
	baseURL   string
	projectID string
	dataType  string
	dataDir   string

	pageSize        int
	maxRetries      int
	queryTimeout    time.Duration
	downloadTimeout time.Duration
	backoffBase     time.Duration

	subtypePrimaryURL  string
	subtypeFallbackURL string

	http *http.Client
	log  logger.Logger
}

// New creates a Client. The zero configuration targets the public GDC API
// with the TCGA-BRCA project.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:            defaultBaseURL,
		projectID:          defaultProjectID,
		dataType:           defaultDataType,
		dataDir:            "data",
		pageSize:           defaultPageSize,
		maxRetries:         defaultMaxRetries,
		queryTimeout:       defaultQueryTimeout,
		downloadTimeout:    defaultDownloadTimeout,
		backoffBase:        defaultBackoffBase,
		subtypePrimaryURL:  subtypePrimaryURL,
		subtypeFallbackURL: subtypeFallbackURL,
		http:               &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Get()
	}
	return c
}

// queryParams builds the common query-string parameters every resource uses.
func (c *Client) queryParams(filters gdcfilter.Filter, fields []string, size int) url.Values {
	v := url.Values{}
	v.Set("filters", filters.String())
	v.Set("fields", strings.Join(fields, ","))
	v.Set("size", strconv.Itoa(size))
	v.Set("format", "JSON")
	return v
}

// query issues one GET against an endpoint with retry and exponential
// backoff. The wait before retry n is backoffBase * 2^(n-1), no jitter.
// After maxRetries failures the final error is propagated.
func (c *Client) query(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	resource := strings.Trim(endpoint, "/")
	u := c.baseURL + endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoffBase << (attempt - 1)
			c.log.Warn(ctx, "request failed, retrying",
				logger.String("resource", resource),
				logger.String("wait", wait.String()),
				logger.Error(lastErr))
			metrics.RecordAPIRetry(resource)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return gjson.Result{}, ctx.Err()
			}
		}

		metrics.RecordAPIRequest(resource)
		start := time.Now()
		body, err := c.getOnce(ctx, u, c.queryTimeout)
		metrics.RecordQueryLatency(resource, time.Since(start).Seconds())
		if err != nil {
			lastErr = err
			continue
		}
		return gjson.ParseBytes(body), nil
	}

	metrics.RecordAPIError(resource, "transport")
	return gjson.Result{}, fmt.Errorf("query %s after %d attempts: %w", resource, c.maxRetries, lastErr)
}

// getOnce performs a single GET with a request-scoped timeout and returns
// the full body. Any status >= 400 is a failure.
func (c *Client) getOnce(ctx context.Context, u string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrRequestFailed, resp.StatusCode, u)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}
	return body, nil
}

// hits extracts the data.hits array from a response envelope. A missing
// array is a malformed response, not an empty result. When the reported
// pagination total exceeds the requested page size the result set was
// silently truncated by the single-page model; that is logged so it is at
// least visible.
func (c *Client) hits(ctx context.Context, res gjson.Result, resource string, size int) (gjson.Result, error) {
	h := res.Get("data.hits")
	if !h.Exists() || !h.IsArray() {
		metrics.RecordAPIError(resource, "envelope")
		return gjson.Result{}, fmt.Errorf("%w: no data.hits for %s", ErrUnexpectedResponse, resource)
	}

	if total := res.Get("data.pagination.total"); total.Exists() && total.Int() > int64(size) {
		c.log.Warn(ctx, "result set truncated to a single page",
			logger.String("resource", resource),
			logger.Int64("total", total.Int()),
			logger.Int("page_size", size))
	}
	return h, nil
}
