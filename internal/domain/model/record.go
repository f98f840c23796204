// Package model contains the flat record types passed between layers.
//
// Every record is one output row. Optional values are pointers so that an
// absent nested path in the source JSON stays distinguishable from an empty
// string; the TSV writer renders nil as an empty cell. There is no
// cross-record referential integrity: a case id appearing in one table is
// not required to appear in any other.
package model

import "strconv"

// FileRecord is one remote data file from the files endpoint.
type FileRecord struct {
	FileID   string
	FileName string
	FileSize int64
	CaseID   *string // absent when the hit carries no cases array
	SampleID *string // absent when the first case carries no samples array
}

// FileHeaders returns the manifest column order.
func FileHeaders() []string {
	return []string{"file_id", "file_name", "file_size", "case_id", "sample_id"}
}

// Row projects the record into TSV cells in FileHeaders order.
func (r FileRecord) Row() []string {
	return []string{
		r.FileID,
		r.FileName,
		strconv.FormatInt(r.FileSize, 10),
		deref(r.CaseID),
		deref(r.SampleID),
	}
}

// ClinicalRecord is one patient case with demographic and first-diagnosis
// sub-objects collapsed to scalars.
type ClinicalRecord struct {
	CaseID           string
	AgeAtIndex       *float64
	Gender           *string
	Race             *string
	VitalStatus      *string
	DaysToDeath      *float64
	DaysToBirth      *float64
	PrimaryDiagnosis *string
	TumorStage       *string
	AJCCPathologicT  *string
	AJCCPathologicN  *string
	AJCCPathologicM  *string
}

// ClinicalHeaders returns the clinical table column order.
func ClinicalHeaders() []string {
	return []string{
		"case_id", "age_at_index", "gender", "race", "vital_status",
		"days_to_death", "days_to_birth", "primary_diagnosis", "tumor_stage",
		"ajcc_pathologic_t", "ajcc_pathologic_n", "ajcc_pathologic_m",
	}
}

// Row projects the record into TSV cells in ClinicalHeaders order.
func (r ClinicalRecord) Row() []string {
	return []string{
		r.CaseID,
		derefFloat(r.AgeAtIndex),
		deref(r.Gender),
		deref(r.Race),
		deref(r.VitalStatus),
		derefFloat(r.DaysToDeath),
		derefFloat(r.DaysToBirth),
		deref(r.PrimaryDiagnosis),
		deref(r.TumorStage),
		deref(r.AJCCPathologicT),
		deref(r.AJCCPathologicN),
		deref(r.AJCCPathologicM),
	}
}

// AnnotationRecord is one PAM50 annotation hit from the annotations endpoint.
type AnnotationRecord struct {
	CaseID         string
	AnnotationType string
	EntityID       string
}

// AnnotationHeaders returns the annotation table column order.
func AnnotationHeaders() []string {
	return []string{"case_id", "annotation_type", "entity_id"}
}

// Row projects the record into TSV cells in AnnotationHeaders order.
func (r AnnotationRecord) Row() []string {
	return []string{r.CaseID, r.AnnotationType, r.EntityID}
}

// SubtypeRecord is one case-to-PAM50-subtype assignment, derived either from
// annotations or from the parsed supplementary file.
type SubtypeRecord struct {
	CaseID       string
	PAM50Subtype string
}

// SubtypeHeaders returns the subtype table column order.
func SubtypeHeaders() []string {
	return []string{"case_id", "pam50_subtype"}
}

// Row projects the record into TSV cells in SubtypeHeaders order.
func (r SubtypeRecord) Row() []string {
	return []string{r.CaseID, r.PAM50Subtype}
}

// FileCandidate is one clinical file whose name suggests it may carry PAM50
// assignments. Candidates are persisted for a human to inspect, never parsed.
type FileCandidate struct {
	FileID   string
	FileName string
	CaseID   *string
}

// CandidateHeaders returns the candidate manifest column order.
func CandidateHeaders() []string {
	return []string{"file_id", "file_name", "case_id"}
}

// Row projects the record into TSV cells in CandidateHeaders order.
func (r FileCandidate) Row() []string {
	return []string{r.FileID, r.FileName, deref(r.CaseID)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
