package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Plain CSV column names, matching `acctvault export --format csv`.
const (
	csvColDescription = "description"
	csvColURL         = "url"
	csvColUsername    = "username"
	csvColPassword    = "password"
)

// CSVColumns is the header of the plain CSV layout.
var CSVColumns = []string{csvColDescription, csvColURL, csvColUsername, csvColPassword}

// CSVParser parses the plain description,url,username,password layout.
type CSVParser struct{}

// Source returns the source type for this parser.
func (p *CSVParser) Source() Source {
	return SourceCSV
}

// Parse parses plain CSV data.
func (p *CSVParser) Parse(data []byte) (*ImportResult, error) {
	itemCounter := 1
	return parseCSV(data, true, csvColDescription, func(get func(string) string) (*ImportedAccount, string) {
		a := newAccount(get(csvColDescription), get(csvColURL), get(csvColUsername), get(csvColPassword), &itemCounter)
		if a == nil {
			return nil, "skipped: no username or password"
		}
		return a, ""
	})
}

// parseCSV reads a header-based CSV export and hands every well-formed row
// to parseRow. Column names are lowercased when fold is set. Rows that fail
// to parse become warnings, not errors.
func parseCSV(data []byte, fold bool, required string,
	parseRow func(get func(string) string) (*ImportedAccount, string)) (*ImportResult, error) {
	result := &ImportResult{
		Accounts: make([]*ImportedAccount, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}

	// Strip UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true // Handle malformed exports
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if fold {
			col = strings.ToLower(col)
		}
		colIndex[col] = i
	}
	if _, ok := colIndex[required]; !ok {
		return nil, fmt.Errorf("missing required column: %s", required)
	}

	rowNum := 1 // header is row 1
	for {
		rowNum++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: failed to parse: %v", rowNum, err))
			continue
		}

		if len(row) != len(header) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: column count mismatch (expected %d, got %d)",
					rowNum, len(header), len(row)))
			continue
		}

		get := func(col string) string {
			if idx, ok := colIndex[col]; ok {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		account, warning := parseRow(get)
		if account != nil {
			result.Accounts = append(result.Accounts, account)
		} else {
			name := get(required)
			result.Skipped = append(result.Skipped, SkippedItem{
				OriginalName: name,
				Reason:       strings.TrimPrefix(warning, "skipped: "),
			})
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", rowNum, warning))
		}
	}

	DeduplicateDescriptions(result.Accounts)
	return result, nil
}

// WriteCSV writes accounts in the plain CSV layout.
func WriteCSV(w io.Writer, accounts []*ImportedAccount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, a := range accounts {
		if err := cw.Write([]string{a.Description, a.URL, a.Username, a.Password}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
