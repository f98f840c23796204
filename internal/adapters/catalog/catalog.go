// Package catalog records fetch runs and persisted artifacts in a local
// sqlite database, so repeat invocations can report what already exists.
// The catalog is strictly advisory: callers demote every error here to a
// warning and keep going.
package catalog

import (
	"errors"
	"fmt"

	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	_ "github.com/ncruces/go-sqlite3/embed" // embedded sqlite driver
)

// Catalog is a handle to the local fetch catalog.
type Catalog struct {
	db *gorm.DB
}

// Open opens (creating if needed) the catalog at path and migrates its
// schema.
func Open(path string) (*Catalog, error) {
	db, err := gorm.Open(gormlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", path, err)
	}

	if err := db.AutoMigrate(&FetchRun{}, &Artifact{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// RecordRun appends one pipeline stage execution.
func (c *Catalog) RecordRun(run *FetchRun) error {
	if c == nil {
		return nil
	}
	if err := c.db.Create(run).Error; err != nil {
		return fmt.Errorf("%w: record run: %w", ErrCatalogWrite, err)
	}
	return nil
}

// RecordArtifact upserts a persisted file by name.
func (c *Catalog) RecordArtifact(a *Artifact) error {
	if c == nil {
		return nil
	}
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"path", "size_bytes", "source", "updated_at"}),
	}).Create(a).Error
	if err != nil {
		return fmt.Errorf("%w: record artifact: %w", ErrCatalogWrite, err)
	}
	return nil
}

// RecentRuns returns the n most recent runs, newest first.
func (c *Catalog) RecentRuns(n int) ([]FetchRun, error) {
	if c == nil {
		return nil, nil
	}
	var runs []FetchRun
	if err := c.db.Order("created_at desc").Limit(n).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}

// Artifact returns the recorded artifact with the given name, or nil.
func (c *Catalog) Artifact(name string) (*Artifact, error) {
	if c == nil {
		return nil, nil
	}
	var a Artifact
	err := c.db.Where("name = ?", name).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}
	return &a, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return sqlDB.Close()
}
