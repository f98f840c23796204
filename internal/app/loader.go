// Package app orchestrates the loader pipeline: fetch each resource from
// the GDC API, persist it as a tab-separated table, and keep the fetch
// catalog and metrics current along the way.
package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gdclab/brcaloader/internal/adapters/catalog"
	"github.com/gdclab/brcaloader/internal/adapters/gdc"
	"github.com/gdclab/brcaloader/internal/adapters/tsv"
	"github.com/gdclab/brcaloader/internal/domain/model"
	"github.com/gdclab/brcaloader/pkg/logger"
	"github.com/gdclab/brcaloader/pkg/metrics"
)

// Output file names within the data directory.
const (
	manifestFileName   = "file_manifest.tsv"
	clinicalFileName   = "clinical_data.tsv"
	candidatesFileName = "pam50_files_manifest.tsv"
	subtypesFileName   = "pam50_subtypes.tsv"
)

// Loader runs the fetch pipeline. All calls are sequential and share one
// client; nothing here is safe for concurrent use, and nothing needs to be.
type Loader struct {
	client       *gdc.Client
	cat          *catalog.Catalog
	dataDir      string
	autoDownload bool
	log          logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithClient sets the GDC client.
func WithClient(c *gdc.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithCatalog sets the fetch catalog. A nil catalog disables recording.
func WithCatalog(c *catalog.Catalog) Option {
	return func(l *Loader) {
		l.cat = c
	}
}

// WithDataDir sets the output directory.
func WithDataDir(dir string) Option {
	return func(l *Loader) {
		if dir != "" {
			l.dataDir = dir
		}
	}
}

// WithAutoDownload enables the supplementary-file download stage of the
// subtype resolution.
func WithAutoDownload(enabled bool) Option {
	return func(l *Loader) {
		l.autoDownload = enabled
	}
}

// WithLogger sets the loader logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.log = lg
		}
	}
}

// New creates a Loader with the provided options.
func New(opts ...Option) *Loader {
	l := &Loader{
		dataDir: "data",
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = gdc.New(gdc.WithDataDir(l.dataDir))
	}
	if l.log == nil {
		l.log = logger.Get()
	}
	return l
}

// Summary describes one completed pipeline run.
type Summary struct {
	Files         int
	Cases         int
	Subtypes      int
	SubtypeSource string
	Outputs       []string
}

// FileManifest fetches the RNA-Seq file manifest and persists it.
func (l *Loader) FileManifest(ctx context.Context) ([]model.FileRecord, error) {
	l.log.Info(ctx, "querying GDC for expression files")
	start := time.Now()

	records, err := l.client.FileManifest(ctx)
	if err != nil {
		l.recordRun(ctx, "files", 0, start, "", catalog.StatusFailed, err)
		return nil, err
	}

	path := filepath.Join(l.dataDir, manifestFileName)
	if err := tsv.WriteRecords(path, model.FileHeaders(), records); err != nil {
		l.recordRun(ctx, "files", len(records), start, path, catalog.StatusFailed, err)
		return nil, err
	}

	metrics.RecordTableWritten(manifestFileName, len(records))
	l.recordRun(ctx, "files", len(records), start, path, catalog.StatusOK, nil)
	l.log.Info(ctx, "saved file manifest",
		logger.Int("files", len(records)),
		logger.String("path", path))
	return records, nil
}

// ClinicalData fetches per-case clinical records and persists them.
func (l *Loader) ClinicalData(ctx context.Context) ([]model.ClinicalRecord, error) {
	l.log.Info(ctx, "querying GDC for clinical data")
	start := time.Now()

	records, err := l.client.ClinicalData(ctx)
	if err != nil {
		l.recordRun(ctx, "cases", 0, start, "", catalog.StatusFailed, err)
		return nil, err
	}

	path := filepath.Join(l.dataDir, clinicalFileName)
	if err := tsv.WriteRecords(path, model.ClinicalHeaders(), records); err != nil {
		l.recordRun(ctx, "cases", len(records), start, path, catalog.StatusFailed, err)
		return nil, err
	}

	metrics.RecordTableWritten(clinicalFileName, len(records))
	l.recordRun(ctx, "cases", len(records), start, path, catalog.StatusOK, nil)
	l.log.Info(ctx, "saved clinical data",
		logger.Int("cases", len(records)),
		logger.String("path", path))
	return records, nil
}

// LoadAll runs the whole pipeline: file manifest, clinical data, subtype
// resolution. The first two are required and fail the run; subtypes degrade
// to an empty result.
func (l *Loader) LoadAll(ctx context.Context) (*Summary, error) {
	manifest, err := l.FileManifest(ctx)
	if err != nil {
		return nil, err
	}

	clinical, err := l.ClinicalData(ctx)
	if err != nil {
		return nil, err
	}

	result := l.ResolveSubtypes(ctx)

	s := &Summary{
		Files:         len(manifest),
		Cases:         len(clinical),
		Subtypes:      result.Count(),
		SubtypeSource: result.Source,
		Outputs: []string{
			filepath.Join(l.dataDir, manifestFileName),
			filepath.Join(l.dataDir, clinicalFileName),
		},
	}
	if result.CandidatesWritten {
		s.Outputs = append(s.Outputs, filepath.Join(l.dataDir, candidatesFileName))
	}
	if result.Count() > 0 {
		s.Outputs = append(s.Outputs, filepath.Join(l.dataDir, subtypesFileName))
	}
	return s, nil
}

// recordRun writes a catalog entry; catalog failures are warnings, never
// pipeline errors.
func (l *Loader) recordRun(ctx context.Context, resource string, rows int, start time.Time, output, status string, runErr error) {
	run := &catalog.FetchRun{
		Resource:   resource,
		Rows:       rows,
		DurationMS: time.Since(start).Milliseconds(),
		OutputPath: output,
		Status:     status,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := l.cat.RecordRun(run); err != nil {
		l.log.Warn(ctx, "failed to record catalog run", logger.Error(err))
	}
}

// recordArtifact writes a catalog artifact entry with the same demotion.
func (l *Loader) recordArtifact(ctx context.Context, name, path, source string, size int64) {
	err := l.cat.RecordArtifact(&catalog.Artifact{
		Name:      name,
		Path:      path,
		SizeBytes: size,
		Source:    source,
	})
	if err != nil {
		l.log.Warn(ctx, "failed to record catalog artifact", logger.Error(err))
	}
}
