// Package config defines loader configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataDir is the directory downloaded data and TSV outputs land in.
	DataDir string `koanf:"data_dir"`

	// BaseURL is the GDC API root.
	BaseURL string `koanf:"base_url"`

	// ProjectID selects the GDC project all queries are scoped to.
	ProjectID string `koanf:"project_id"`

	// DataType selects the file data type for the manifest query.
	DataType string `koanf:"data_type"`

	// PageSize caps the number of hits requested per query. The API is
	// queried a single page at a time; larger result sets are truncated.
	PageSize int `koanf:"page_size"`

	// MaxRetries bounds the retry loop for metadata queries.
	MaxRetries int `koanf:"max_retries"`

	// QueryTimeout is the per-request ceiling for metadata queries.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// DownloadTimeout is the per-request ceiling for file downloads.
	DownloadTimeout time.Duration `koanf:"download_timeout"`

	// AutoDownloadPAM50 enables the supplementary-file download stage when
	// the API holds no PAM50 annotations.
	AutoDownloadPAM50 bool `koanf:"auto_download_pam50"`

	// MetricsAddr exposes /metrics on this address; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// CatalogPath is the sqlite fetch-catalog location; empty disables it.
	CatalogPath string `koanf:"catalog_path"`
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:          "info",
		DataDir:           "data",
		BaseURL:           "https://api.gdc.cancer.gov",
		ProjectID:         "TCGA-BRCA",
		DataType:          "Gene Expression Quantification",
		PageSize:          10_000,
		MaxRetries:        3,
		QueryTimeout:      60 * time.Second,
		DownloadTimeout:   300 * time.Second,
		AutoDownloadPAM50: true,
		MetricsAddr:       "",
		CatalogPath:       "",
	}
	return c
}
