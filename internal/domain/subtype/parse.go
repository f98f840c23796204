package subtype

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdclab/brcaloader/internal/domain/model"
)

// Sentinel error kinds for this package.
var (
	ErrFileNotFound = errors.New("subtype file not found")
	ErrNoColumns    = errors.New("could not identify subtype columns")
)

// Parse extracts subtype assignments from raw file content.
//
// Stages, in order: reject HTML payloads; parse as tab-separated; if that
// yields a single column the delimiter guess was wrong, so re-parse with a
// sniffed delimiter; drop fully-empty rows; locate the identifier and label
// columns via MatchColumns; trim both and drop rows whose label is empty or
// the literal "nan".
//
// An HTML payload returns (nil, nil): absent data, not an error.
func Parse(data []byte) ([]model.SubtypeRecord, error) {
	if IsHTML(data) {
		return nil, nil
	}

	rows, err := parseDelimited(data, '\t')
	if err != nil {
		return nil, fmt.Errorf("parse subtype file: %w", err)
	}

	if len(rows) > 0 && len(rows[0]) == 1 {
		delim := SniffDelimiter(firstLine(data))
		if delim != '\t' {
			if resniffed, err := parseDelimited(data, delim); err == nil {
				rows = resniffed
			}
		}
	}

	rows = dropEmptyRows(rows)
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrNoColumns)
	}

	header := rows[0]
	cols, ok := MatchColumns(header)
	if !ok {
		return nil, fmt.Errorf("%w: headers %v", ErrNoColumns, header)
	}

	records := make([]model.SubtypeRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if cols.ID >= len(row) || cols.Label >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[cols.ID])
		label := strings.TrimSpace(row[cols.Label])
		if label == "" || strings.EqualFold(label, "nan") {
			continue
		}
		records = append(records, model.SubtypeRecord{CaseID: id, PAM50Subtype: label})
	}
	return records, nil
}

// LoadFile reads and parses a subtype file from disk.
//
// A missing file is the one fatal condition of the importer; an HTML file
// on disk (a previously persisted bad download) yields an empty result.
func LoadFile(path string) ([]model.SubtypeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read subtype file: %w", err)
	}
	return Parse(data)
}

// parseDelimited reads all rows with the given delimiter. Ragged rows are
// tolerated and comment lines skipped; both are common in these files.
func parseDelimited(data []byte, delim rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Skip unparseable lines rather than failing the whole file.
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dropEmptyRows removes rows whose every cell is blank.
func dropEmptyRows(rows [][]string) [][]string {
	kept := rows[:0]
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, row)
		}
	}
	return kept
}

// firstLine returns the first non-empty line of data as a string.
func firstLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
