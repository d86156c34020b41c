package formatter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/shared"
)

// ResultsHeader is the header row of an import results file.
var ResultsHeader = []string{"songId_or_isrc", "amount_usd", "result"}

// IsHeaderRow reports whether the first data-bearing row looks like column names.
func IsHeaderRow(col1, col2 string) bool {
	col1 = strings.ToLower(col1)
	col2 = strings.ToLower(col2)

	col1Header := strings.Contains(col1, "song") || strings.Contains(col1, "isrc") || strings.Contains(col1, "id")
	col2Header := strings.Contains(col2, "amount") || strings.Contains(col2, "usd") || strings.Contains(col2, "price")
	return col1Header && col2Header
}

// ParseImportCSV reads two-column import rows (song id or ISRC, USD amount).
//
// Cells are trimmed, extra columns are ignored and rows with both cells empty are skipped.
// Only the first non-empty row is checked against [IsHeaderRow]. Line numbers in errors count
// records, starting at 1.
func ParseImportCSV(r io.Reader) ([]models.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows  []models.ImportRow
		first = true
		line  = 0
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", shared.ErrInvalidInput, line, err)
		}

		if len(record) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected at least 2 columns, found %d", shared.ErrInvalidInput, line, len(record))
		}

		col1 := strings.TrimSpace(record[0])
		col2 := strings.TrimSpace(record[1])
		if col1 == "" && col2 == "" {
			continue
		}

		if first {
			first = false
			if IsHeaderRow(col1, col2) {
				continue
			}
		}

		rows = append(rows, models.ImportRow{Identifier: col1, USDAmount: col2})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: CSV file contains no data rows", shared.ErrInvalidInput)
	}
	return rows, nil
}

// ParseImportFile opens path and parses it with [ParseImportCSV].
func ParseImportFile(path string) ([]models.ImportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return ParseImportCSV(f)
}

// ResultsPath returns the sibling results file for input: "<stem>_results<ext>", with ".csv"
// when input has no extension.
func ResultsPath(input string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	if ext == "" {
		ext = ".csv"
	}
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	return filepath.Join(filepath.Dir(input), stem+"_results"+ext)
}

// EncodeImportResults writes the results header and one row per outcome, in order.
func EncodeImportResults(w io.Writer, outcomes []models.ImportOutcome) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ResultsHeader); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, o := range outcomes {
		if err := writer.Write([]string{o.Row.Identifier, o.Row.USDAmount, o.Result}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// WriteImportResults writes outcomes next to input and returns the results path.
func WriteImportResults(input string, outcomes []models.ImportOutcome) (string, error) {
	path := ResultsPath(input)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}

	if err := EncodeImportResults(f, outcomes); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close results file: %w", err)
	}
	return path, nil
}
