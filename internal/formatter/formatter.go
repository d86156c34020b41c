// package formatter reads import files and renders earnings and import results as CSV, JSON, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

var earningsHeaders = []string{"ID", "Song ID", "Stake Address", "Amount", "Memo", "Claimed", "Claimed At", "Created At"}

func earningRecord(e models.Earning) []string {
	return []string{
		e.Key(),
		e.Song(),
		e.StakeAddress,
		shared.FormatAmount(e.Amount),
		e.Note(),
		strconv.FormatBool(e.Claimed),
		e.ClaimedOn(),
		e.CreatedAt,
	}
}

// ExportToCSV renders earnings with one row per earning. Amounts keep all six decimals.
func ExportToCSV(earnings []models.Earning) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(earningsHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range earnings {
		if err := writer.Write(earningRecord(e)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders earnings using the API field names.
func ExportToJSON(earnings []models.Earning) ([]byte, error) {
	if earnings == nil {
		earnings = []models.Earning{}
	}
	return shared.MarshalJSON(earnings, true)
}

// ExportToMarkdown renders earnings as a Markdown table followed by totals.
func ExportToMarkdown(earnings []models.Earning) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Earnings\n\n")
	buf.WriteString("| " + strings.Join(earningsHeaders, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(earningsHeaders)) + "\n")

	var total int64
	for _, e := range earnings {
		record := earningRecord(e)
		for i, cell := range record {
			record[i] = strings.ReplaceAll(cell, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(record, " | ") + " |\n")
		total += e.Amount
	}

	buf.WriteString(fmt.Sprintf("\n**Earnings**: %d\n", len(earnings)))
	buf.WriteString(fmt.Sprintf("**Total**: $%s\n", shared.FormatAmount(total)))
	return buf.Bytes(), nil
}

// ExportToText renders earnings as a bordered terminal table.
func ExportToText(earnings []models.Earning) ([]byte, error) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(earningsHeaders...)

	for _, e := range earnings {
		t.Row(earningRecord(e)...)
	}

	var buf bytes.Buffer
	buf.WriteString(t.Render())
	buf.WriteString(fmt.Sprintf("\n%d earnings\n", len(earnings)))
	return buf.Bytes(), nil
}

// Export renders earnings in the named format.
func Export(earnings []models.Earning, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(earnings)
	case FormatJSON:
		return ExportToJSON(earnings)
	case FormatMarkdown, "md":
		return ExportToMarkdown(earnings)
	case FormatText, "txt", "":
		return ExportToText(earnings)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders earnings in format and writes them to path.
func WriteExport(earnings []models.Earning, format, path string) error {
	data, err := Export(earnings, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
