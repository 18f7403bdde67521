// Package excel loads tabular annotation workbooks into entity-keyed
// annotation mappings.
//
// Annotation support is a declared capability resolved from
// configuration, not a runtime guess: a disabled loader returns an
// empty mapping and ErrDependencyMissing, and ontology-only operation
// remains fully functional.
package excel

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/c360studio/semgraph/source"
)

// keyColumnHints are header keywords that identify the entity-key
// column when no column is literally named "name" or "id".
var keyColumnHints = []string{"entity", "name", "class", "individual", "concept"}

// Loader parses Excel workbooks into annotation mappings.
type Loader struct {
	enabled bool
	logger  *slog.Logger
}

// NewLoader creates an annotation loader. When enabled is false, Load
// degrades gracefully instead of aborting ingestion.
func NewLoader(enabled bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{enabled: enabled, logger: logger}
}

// Enabled reports whether annotation parsing is available.
func (l *Loader) Enabled() bool {
	return l.enabled
}

// Load reads every sheet of the workbook at path and returns a mapping
// from inferred entity key to annotation fields. knownName, when
// non-nil, reports whether a cell value matches an existing entity
// display name in the target graph; it backs the last-resort key-column
// heuristic.
func (l *Loader) Load(path string, knownName func(string) bool) (source.Annotations, error) {
	if !l.enabled {
		return source.Annotations{}, source.ErrDependencyMissing
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, source.NewParseError(path, err)
	}
	defer f.Close()

	annotations := make(source.Annotations)

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, source.NewParseError(path, fmt.Errorf("sheet %q: %w", sheet, err))
		}
		if len(rows) < 2 {
			continue
		}

		headers := rows[0]
		keyCol := findKeyColumn(headers, rows[1:], knownName)
		if keyCol < 0 {
			l.logger.Warn("No entity-key column identified, skipping sheet",
				"path", path,
				"sheet", sheet)
			continue
		}

		for _, row := range rows[1:] {
			if keyCol >= len(row) {
				continue
			}
			key := strings.TrimSpace(row[keyCol])
			if key == "" {
				continue
			}

			fields := annotations[key]
			if fields == nil {
				fields = make(map[string]string)
				annotations[key] = fields
			}
			for i, cell := range row {
				if i == keyCol || i >= len(headers) {
					continue
				}
				header := strings.TrimSpace(headers[i])
				value := strings.TrimSpace(cell)
				if header == "" || value == "" {
					continue
				}
				fields[header] = value
			}
		}
	}

	l.logger.Info("Annotation workbook loaded",
		"path", path,
		"sheets", len(f.GetSheetList()),
		"entities", len(annotations))

	return annotations, nil
}

// findKeyColumn identifies which column carries the entity key:
// a column literally named "name" or "id" first, then a header
// containing a known keyword, and finally the column whose values best
// match existing entity display names.
func findKeyColumn(headers []string, rows [][]string, knownName func(string) bool) int {
	for i, h := range headers {
		folded := strings.ToLower(strings.TrimSpace(h))
		if folded == "name" || folded == "id" {
			return i
		}
	}

	for i, h := range headers {
		folded := strings.ToLower(strings.TrimSpace(h))
		for _, hint := range keyColumnHints {
			if strings.Contains(folded, hint) {
				return i
			}
		}
	}

	if knownName == nil {
		return -1
	}

	best, bestMatches := -1, 0
	for i := range headers {
		matches := 0
		for _, row := range rows {
			if i < len(row) && knownName(strings.TrimSpace(row[i])) {
				matches++
			}
		}
		if matches > bestMatches {
			best, bestMatches = i, matches
		}
	}
	return best
}
