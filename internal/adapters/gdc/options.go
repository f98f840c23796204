package gdc

import (
	"net/http"
	"time"

	"github.com/gdclab/brcaloader/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. "https://api.gdc.cancer.gov".
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the underlying HTTP client. All queries and downloads
// share it so connections get pooled across sequential calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDataDir sets the directory downloads are written to.
func WithDataDir(dir string) Option {
	return func(c *Client) {
		if dir != "" {
			c.dataDir = dir
		}
	}
}

// WithProjectID scopes all queries to a GDC project.
func WithProjectID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.projectID = id
		}
	}
}

// WithDataType sets the file data type for the manifest query.
func WithDataType(t string) Option {
	return func(c *Client) {
		if t != "" {
			c.dataType = t
		}
	}
}

// WithPageSize caps the number of hits requested per query.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxRetries bounds the retry loop for metadata queries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithQueryTimeout sets the per-request ceiling for metadata queries.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.queryTimeout = d
		}
	}
}

// WithDownloadTimeout sets the per-request ceiling for file downloads.
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.downloadTimeout = d
		}
	}
}

// WithBackoffBase sets the backoff unit; the wait before retry n is
// base * 2^(n-1). The default unit is one second.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithSubtypeURLs overrides the publication URLs for the supplementary
// PAM50 file (primary, then one fallback).
func WithSubtypeURLs(primary, fallback string) Option {
	return func(c *Client) {
		if primary != "" {
			c.subtypePrimaryURL = primary
		}
		c.subtypeFallbackURL = fallback
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
