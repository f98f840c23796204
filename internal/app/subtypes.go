package app

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gdclab/brcaloader/internal/adapters/catalog"
	"github.com/gdclab/brcaloader/internal/adapters/tsv"
	"github.com/gdclab/brcaloader/internal/domain/model"
	"github.com/gdclab/brcaloader/internal/domain/subtype"
	"github.com/gdclab/brcaloader/pkg/logger"
	"github.com/gdclab/brcaloader/pkg/metrics"
)

// Subtype sources reported in the run summary.
const (
	SourceAnnotations   = "annotations"
	SourceSupplementary = "supplementary-file"
	SourceNone          = "none"
)

// Keywords matched against clinical file names in the candidate search.
var candidateKeywords = []string{"pam50", "subtype"}

// SubtypeResult is the outcome of the staged PAM50 resolution. Exactly one
// of Annotations or Subtypes is populated on success, mirroring the two
// shapes the data can arrive in. CandidatesWritten reports whether the
// file-search stage persisted a candidate manifest alongside.
type SubtypeResult struct {
	Annotations       []model.AnnotationRecord
	Subtypes          []model.SubtypeRecord
	Source            string
	CandidatesWritten bool
}

// Count returns the number of resolved rows.
func (r SubtypeResult) Count() int {
	if len(r.Annotations) > 0 {
		return len(r.Annotations)
	}
	return len(r.Subtypes)
}

// ResolveSubtypes runs the staged PAM50 lookup. Stages are ordered by
// decreasing reliability and the first that yields data wins:
//
//  1. the annotations endpoint, the only authoritative source;
//  2. a clinical-file name search, which persists a candidate manifest for
//     a human and never short-circuits;
//  3. a sampled clinical-field probe, which only logs a hint;
//  4. when auto-download is enabled, the publication supplementary file.
//
// Every stage failure is logged and non-fatal; the worst case is an empty
// result, never an error.
func (l *Loader) ResolveSubtypes(ctx context.Context) SubtypeResult {
	l.log.Info(ctx, "resolving PAM50 subtype annotations")

	if result, ok := l.subtypesFromAnnotations(ctx); ok {
		return result
	}
	wroteCandidates := l.searchCandidateFiles(ctx)
	l.probeClinicalFields(ctx)

	if l.autoDownload {
		if result, ok := l.subtypesFromSupplementaryFile(ctx); ok {
			result.CandidatesWritten = wroteCandidates
			return result
		}
	}

	l.log.Warn(ctx, "PAM50 subtypes not found via GDC API")
	return SubtypeResult{Source: SourceNone, CandidatesWritten: wroteCandidates}
}

// subtypesFromAnnotations is stage 1: query the annotations endpoint.
func (l *Loader) subtypesFromAnnotations(ctx context.Context) (SubtypeResult, bool) {
	start := time.Now()
	annotations, err := l.client.PAM50Annotations(ctx)
	if err != nil {
		metrics.RecordSubtypeStage("annotations", "error")
		l.recordRun(ctx, "annotations", 0, start, "", catalog.StatusFailed, err)
		l.log.Warn(ctx, "annotations endpoint failed", logger.Error(err))
		return SubtypeResult{}, false
	}
	if len(annotations) == 0 {
		metrics.RecordSubtypeStage("annotations", "empty")
		l.recordRun(ctx, "annotations", 0, start, "", catalog.StatusEmpty, nil)
		return SubtypeResult{}, false
	}

	path := filepath.Join(l.dataDir, subtypesFileName)
	if err := tsv.WriteRecords(path, model.AnnotationHeaders(), annotations); err != nil {
		l.log.Warn(ctx, "failed to persist annotations", logger.Error(err))
	} else {
		metrics.RecordTableWritten(subtypesFileName, len(annotations))
	}

	metrics.RecordSubtypeStage("annotations", "hit")
	l.recordRun(ctx, "annotations", len(annotations), start, path, catalog.StatusOK, nil)
	l.log.Info(ctx, "found PAM50 annotations", logger.Int("count", len(annotations)))
	return SubtypeResult{Annotations: annotations, Source: SourceAnnotations}, true
}

// searchCandidateFiles is stage 2: persist a manifest of clinical files
// whose names look PAM50-related. The manifest is for a human to inspect;
// nothing here parses those files, and the stage never short-circuits. The
// return value reports whether a manifest landed on disk.
func (l *Loader) searchCandidateFiles(ctx context.Context) bool {
	candidates, err := l.client.ClinicalFileCandidates(ctx, candidateKeywords...)
	if err != nil {
		metrics.RecordSubtypeStage("file-search", "error")
		l.log.Warn(ctx, "supplementary file search failed", logger.Error(err))
		return false
	}
	if len(candidates) == 0 {
		metrics.RecordSubtypeStage("file-search", "empty")
		return false
	}

	path := filepath.Join(l.dataDir, candidatesFileName)
	if err := tsv.WriteRecords(path, model.CandidateHeaders(), candidates); err != nil {
		l.log.Warn(ctx, "failed to persist candidate manifest", logger.Error(err))
		return false
	}

	metrics.RecordSubtypeStage("file-search", "hit")
	metrics.RecordTableWritten(candidatesFileName, len(candidates))
	l.log.Info(ctx, "saved PAM50 candidate file manifest; these files need manual download and parsing",
		logger.Int("candidates", len(candidates)),
		logger.String("path", path))
	return true
}

// probeClinicalFields is stage 3: advisory only.
func (l *Loader) probeClinicalFields(ctx context.Context) {
	found, err := l.client.SubtypeFieldProbe(ctx)
	if err != nil {
		metrics.RecordSubtypeStage("field-probe", "error")
		l.log.Warn(ctx, "clinical subtype probe failed", logger.Error(err))
		return
	}
	if found {
		metrics.RecordSubtypeStage("field-probe", "hint")
		l.log.Info(ctx, "clinical data may contain subtype fields (molecular_subtype_method)")
		return
	}
	metrics.RecordSubtypeStage("field-probe", "empty")
}

// subtypesFromSupplementaryFile is stage 4: download the publication file
// and parse it heuristically.
func (l *Loader) subtypesFromSupplementaryFile(ctx context.Context) (SubtypeResult, bool) {
	start := time.Now()

	path, err := l.client.DownloadSubtypeFile(ctx)
	if err != nil {
		metrics.RecordSubtypeStage("auto-download", "error")
		l.recordRun(ctx, "subtype-download", 0, start, "", catalog.StatusFailed, err)
		l.log.Warn(ctx, "auto-download failed", logger.Error(err))
		return SubtypeResult{}, false
	}

	if info, err := os.Stat(path); err == nil {
		l.recordArtifact(ctx, filepath.Base(path), path, "tcga-2012-publication", info.Size())
	}

	records, err := subtype.LoadFile(path)
	if err != nil {
		metrics.RecordSubtypeStage("auto-download", "error")
		l.recordRun(ctx, "subtype-download", 0, start, path, catalog.StatusFailed, err)
		l.log.Warn(ctx, "failed to parse supplementary file", logger.Error(err))
		return SubtypeResult{}, false
	}
	if len(records) == 0 {
		metrics.RecordSubtypeStage("auto-download", "empty")
		l.recordRun(ctx, "subtype-download", 0, start, path, catalog.StatusEmpty, nil)
		return SubtypeResult{}, false
	}

	out := filepath.Join(l.dataDir, subtypesFileName)
	if err := tsv.WriteRecords(out, model.SubtypeHeaders(), records); err != nil {
		l.log.Warn(ctx, "failed to persist subtypes", logger.Error(err))
	} else {
		metrics.RecordTableWritten(subtypesFileName, len(records))
	}

	metrics.RecordSubtypeStage("auto-download", "hit")
	l.recordRun(ctx, "subtype-download", len(records), start, out, catalog.StatusOK, nil)
	l.log.Info(ctx, "parsed PAM50 subtypes from supplementary file",
		logger.Int("samples", len(records)),
		logger.String("distribution", distribution(records)))
	return SubtypeResult{Subtypes: records, Source: SourceSupplementary}, true
}

// distribution formats subtype counts for the log line, e.g.
// "LumA=231 Basal=98".
func distribution(records []model.SubtypeRecord) string {
	counts := map[string]int{}
	var order []string
	for _, r := range records {
		if _, seen := counts[r.PAM50Subtype]; !seen {
			order = append(order, r.PAM50Subtype)
		}
		counts[r.PAM50Subtype]++
	}

	out := ""
	for i, label := range order {
		if i > 0 {
			out += " "
		}
		out += label + "=" + strconv.Itoa(counts[label])
	}
	return out
}
