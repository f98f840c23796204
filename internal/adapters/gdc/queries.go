package gdc

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gdclab/brcaloader/internal/domain/gdcfilter"
	"github.com/gdclab/brcaloader/internal/domain/model"
	"github.com/gdclab/brcaloader/pkg/metrics"
)

// GDC endpoints.
const (
	endpointFiles       = "/files"
	endpointCases       = "/cases"
	endpointAnnotations = "/annotations"
)

// probeSampleSize and probeInspectCount bound the advisory clinical-field
// probe: fetch a small sample, inspect only the first few hits.
const (
	probeSampleSize   = 100
	probeInspectCount = 5
)

// projectFilter scopes a query to the configured project.
func (c *Client) projectFilter() gdcfilter.Filter {
	return gdcfilter.In("cases.project.project_id", c.projectID)
}

// FileManifest queries the files endpoint for RNA-Seq expression files and
// flattens the hits into manifest records.
func (c *Client) FileManifest(ctx context.Context) ([]model.FileRecord, error) {
	filters := gdcfilter.And(
		c.projectFilter(),
		gdcfilter.In("files.data_type", c.dataType),
		gdcfilter.In("files.experimental_strategy", "RNA-Seq"),
	)
	fields := []string{"file_id", "file_name", "file_size", "cases.case_id", "cases.samples.sample_id"}

	res, err := c.query(ctx, endpointFiles, c.queryParams(filters, fields, c.pageSize))
	if err != nil {
		return nil, err
	}
	hits, err := c.hits(ctx, res, "files", c.pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]model.FileRecord, 0, len(hits.Array()))
	for _, hit := range hits.Array() {
		records = append(records, flattenFile(hit))
	}
	metrics.UpdateRowsFetched("files", len(records))
	return records, nil
}

// ClinicalData queries the cases endpoint and collapses each case's
// demographic and first-diagnosis sub-objects into one flat record.
func (c *Client) ClinicalData(ctx context.Context) ([]model.ClinicalRecord, error) {
	fields := []string{"case_id", "demographic", "diagnoses", "exposures"}

	res, err := c.query(ctx, endpointCases, c.queryParams(c.projectFilter(), fields, c.pageSize))
	if err != nil {
		return nil, err
	}
	hits, err := c.hits(ctx, res, "cases", c.pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]model.ClinicalRecord, 0, len(hits.Array()))
	for _, hit := range hits.Array() {
		records = append(records, flattenCase(hit))
	}
	metrics.UpdateRowsFetched("cases", len(records))
	return records, nil
}

// PAM50Annotations queries the annotations endpoint for PAM50-typed
// annotations. These are rare in practice; an empty slice is the common
// result. Envelope and transport errors propagate to the caller, which is
// expected to degrade rather than fail.
func (c *Client) PAM50Annotations(ctx context.Context) ([]model.AnnotationRecord, error) {
	filters := gdcfilter.And(
		c.projectFilter(),
		gdcfilter.In("annotation_type", "PAM50"),
	)
	fields := []string{"case_id", "annotation_type", "entity_id"}

	res, err := c.query(ctx, endpointAnnotations, c.queryParams(filters, fields, c.pageSize))
	if err != nil {
		return nil, err
	}
	hits, err := c.hits(ctx, res, "annotations", c.pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]model.AnnotationRecord, 0, len(hits.Array()))
	for _, hit := range hits.Array() {
		records = append(records, model.AnnotationRecord{
			CaseID:         hit.Get("case_id").String(),
			AnnotationType: hit.Get("annotation_type").String(),
			EntityID:       hit.Get("entity_id").String(),
		})
	}
	metrics.UpdateRowsFetched("annotations", len(records))
	return records, nil
}

// ClinicalFileCandidates searches the clinical file listing for names
// containing any of the keywords, case-insensitively. The match happens
// client-side; the API has no substring filter.
func (c *Client) ClinicalFileCandidates(ctx context.Context, keywords ...string) ([]model.FileCandidate, error) {
	filters := gdcfilter.And(
		c.projectFilter(),
		gdcfilter.In("files.data_category", "Clinical"),
	)
	fields := []string{"file_id", "file_name", "file_size", "cases.case_id"}

	res, err := c.query(ctx, endpointFiles, c.queryParams(filters, fields, c.pageSize))
	if err != nil {
		return nil, err
	}
	hits, err := c.hits(ctx, res, "files", c.pageSize)
	if err != nil {
		return nil, err
	}

	var candidates []model.FileCandidate
	for _, hit := range hits.Array() {
		name := hit.Get("file_name").String()
		if !containsAny(name, keywords) {
			continue
		}
		candidates = append(candidates, model.FileCandidate{
			FileID:   hit.Get("id").String(),
			FileName: name,
			CaseID:   strPtr(hit, "cases.0.case_id"),
		})
	}
	return candidates, nil
}

// SubtypeFieldProbe samples a handful of cases for a molecular_subtype_method
// diagnosis field that sometimes carries subtype information. Advisory only:
// the result is a hint, never usable data.
func (c *Client) SubtypeFieldProbe(ctx context.Context) (bool, error) {
	fields := []string{"case_id", "diagnoses.molecular_subtype_method", "diagnoses.morphology"}

	res, err := c.query(ctx, endpointCases, c.queryParams(c.projectFilter(), fields, probeSampleSize))
	if err != nil {
		return false, err
	}
	hits, err := c.hits(ctx, res, "cases", probeSampleSize)
	if err != nil {
		return false, err
	}

	for i, hit := range hits.Array() {
		if i >= probeInspectCount {
			break
		}
		if hit.Get("diagnoses.0.molecular_subtype_method").String() != "" {
			return true, nil
		}
	}
	return false, nil
}

// flattenFile projects a files hit onto a flat record. The first element of
// each nested array becomes a scalar; absent paths stay nil.
func flattenFile(hit gjson.Result) model.FileRecord {
	return model.FileRecord{
		FileID:   hit.Get("id").String(),
		FileName: hit.Get("file_name").String(),
		FileSize: hit.Get("file_size").Int(),
		CaseID:   strPtr(hit, "cases.0.case_id"),
		SampleID: strPtr(hit, "cases.0.samples.0.sample_id"),
	}
}

// flattenCase projects a cases hit onto a flat clinical record. A case
// without a demographic object or diagnoses array flattens cleanly with all
// derived fields nil.
func flattenCase(hit gjson.Result) model.ClinicalRecord {
	return model.ClinicalRecord{
		CaseID:           hit.Get("id").String(),
		AgeAtIndex:       floatPtr(hit, "demographic.age_at_index"),
		Gender:           strPtr(hit, "demographic.gender"),
		Race:             strPtr(hit, "demographic.race"),
		VitalStatus:      strPtr(hit, "demographic.vital_status"),
		DaysToDeath:      floatPtr(hit, "demographic.days_to_death"),
		DaysToBirth:      floatPtr(hit, "demographic.days_to_birth"),
		PrimaryDiagnosis: strPtr(hit, "diagnoses.0.primary_diagnosis"),
		TumorStage:       strPtr(hit, "diagnoses.0.tumor_stage"),
		AJCCPathologicT:  strPtr(hit, "diagnoses.0.ajcc_pathologic_t"),
		AJCCPathologicN:  strPtr(hit, "diagnoses.0.ajcc_pathologic_n"),
		AJCCPathologicM:  strPtr(hit, "diagnoses.0.ajcc_pathologic_m"),
	}
}

// strPtr returns the string at path, or nil when the path is absent or null.
func strPtr(hit gjson.Result, path string) *string {
	v := hit.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}

// floatPtr returns the number at path, or nil when the path is absent or null.
func floatPtr(hit gjson.Result, path string) *float64 {
	v := hit.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	f := v.Float()
	return &f
}

// containsAny reports whether s contains any keyword, case-insensitively.
func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
