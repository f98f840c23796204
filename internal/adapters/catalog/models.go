package catalog

import "time"

// Run statuses recorded in the catalog.
const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusFailed = "failed"
)

// FetchRun is one recorded pipeline stage execution.
type FetchRun struct {
	ID         uint   `gorm:"primaryKey"`
	Resource   string `gorm:"index"`
	Rows       int
	DurationMS int64
	OutputPath string
	Status     string
	Error      string
	CreatedAt  time.Time
}

// Artifact is one file persisted to the data directory. Artifacts are
// trusted by name without checksums, matching the download layer.
type Artifact struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	Path      string
	SizeBytes int64
	Source    string // URL or GDC file id the artifact came from
	CreatedAt time.Time
	UpdatedAt time.Time
}
