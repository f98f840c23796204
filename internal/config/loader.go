package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if GDC_CONFIG is set
//  3. env (prefix GDC_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("GDC_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: GDC_DATA_DIR, GDC_PAGE_SIZE, ...
	// Map env keys like GDC_PAGE_SIZE -> page_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("GDC_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "gdc_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id must not be empty", ErrInvalidConfig)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("%w: max_retries must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
