package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"studybuddy-matcher/internal/models"
)

// CSVParser errors
var (
	ErrEmptyCSV       = errors.New("CSV content is empty")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDataRows     = errors.New("CSV file contains no data rows")
	ErrInvalidHeader  = errors.New("failed to read header")
)

// RequiredColumns defines the columns that must be present in the CSV.
var RequiredColumns = []string{
	"uid",
	"academic_level",
	"region",
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// uid aliases
	"id":         "uid",
	"user_id":    "uid",
	"userid":     "uid",
	"student_id": "uid",
	"studentid":  "uid",

	// name aliases
	"full_name": "name",
	"fullname":  "name",

	"email_address": "email",
	"mail":          "email",

	"institution": "school",

	// academic level aliases
	"academiclevel":  "academic_level",
	"academic level": "academic_level",
	"level":          "academic_level",
	"grade":          "academic_level",
	"class":          "academic_level",

	"location": "region",

	"subject": "subjects",
	"courses": "subjects",

	// study style aliases
	"studystyle":     "study_style",
	"study style":    "study_style",
	"style":          "study_style",
	"learning_style": "study_style",

	"weekday_availability": "weekdays",
	"weekend_availability": "weekends",
}

// ListSeparators split multi-valued cells such as "Maths;Physics".
const ListSeparators = ";|"

// CSVParser handles parsing of profile CSV files.
type CSVParser struct {
	columnMapping map[string]int
}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser {
	return &CSVParser{
		columnMapping: make(map[string]int),
	}
}

// ParseProfiles parses CSV content into normalized, validated profiles.
// Rows that fail are reported with their line number and skipped.
func (p *CSVParser) ParseProfiles(content string, batchID string) ([]*models.Profile, []error) {
	if strings.TrimSpace(content) == "" {
		return nil, []error{ErrEmptyCSV}
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("%w: %w", ErrInvalidHeader, err)}
	}

	if err := p.buildColumnMapping(header); err != nil {
		return nil, []error{err}
	}

	var profiles []*models.Profile
	var parseErrors []error
	seen := make(map[string]int)
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		profile := p.parseRow(record, batchID).Normalize()
		if err := models.ValidateProfile(profile); err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		if first, dup := seen[profile.UID]; dup {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w: %s already on line %d", lineNum, models.ErrDuplicateCandidate, profile.UID, first))
			continue
		}
		seen[profile.UID] = lineNum

		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 && len(parseErrors) > 0 {
		return nil, append([]error{ErrNoDataRows}, parseErrors...)
	}

	return profiles, parseErrors
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *CSVParser) buildColumnMapping(header []string) error {
	p.columnMapping = make(map[string]int)

	for i, col := range header {
		normalized := normalizeColumn(col)
		if _, exists := p.columnMapping[normalized]; !exists {
			p.columnMapping[normalized] = i
		}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := p.columnMapping[required]; !ok {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return nil
}

func normalizeColumn(col string) string {
	normalized := strings.ToLower(strings.TrimSpace(col))
	normalized = strings.TrimPrefix(normalized, "\ufeff")
	if alias, ok := ColumnAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// parseRow maps a single CSV row onto a profile. Missing optional cells stay empty.
func (p *CSVParser) parseRow(record []string, batchID string) *models.Profile {
	get := func(column string) string {
		idx, ok := p.columnMapping[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	return &models.Profile{
		UID:           get("uid"),
		Name:          get("name"),
		School:        get("school"),
		Email:         get("email"),
		AcademicLevel: get("academic_level"),
		Region:        models.Region(get("region")),
		Subjects:      splitList(get("subjects")),
		StudyPreferences: models.StudyPreferences{
			StudyStyle: splitList(get("study_style")),
		},
		Availability: models.Availability{
			Weekdays: splitList(get("weekdays")),
			Weekends: splitList(get("weekends")),
		},
		Preferences: models.DefaultPreferences(),
		BatchID:     batchID,
		IsActive:    true,
	}
}

// splitList splits a multi-valued cell on any of ListSeparators.
func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return strings.ContainsRune(ListSeparators, r)
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateCSVStructure performs a quick validation of CSV structure without full parsing.
func ValidateCSVStructure(content string) *CSVValidationResult {
	result := &CSVValidationResult{
		Columns:        []string{},
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, "empty file")
		return result
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read header: %v", err))
		return result
	}

	normalizedColumns := make(map[string]bool)
	for _, col := range header {
		normalizedColumns[normalizeColumn(col)] = true
		result.Columns = append(result.Columns, col)
	}

	for _, required := range RequiredColumns {
		if !normalizedColumns[required] {
			result.MissingColumns = append(result.MissingColumns, required)
		}
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row error: %v", err))
			continue
		}
		result.RowCount++
	}

	result.Valid = len(result.MissingColumns) == 0 && result.RowCount > 0

	return result
}

// CSVValidationResult contains the results of CSV validation.
type CSVValidationResult struct {
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}
