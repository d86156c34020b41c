package tasks

import (
	"fmt"

	"github.com/desertthunder/earnx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Fraction returns Step/Total in [0, 1].
func (u ProgressUpdate) Fraction() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Step) / float64(u.Total)
}

// Operation phase enumeration
type Phase int

const (
	ParseFile Phase = iota
	ImportRows
	WriteResults
	RefreshEarnings
)

func (p Phase) String() string {
	switch p {
	case ParseFile:
		return "parse_file"
	case ImportRows:
		return "import_rows"
	case WriteResults:
		return "write_results"
	case RefreshEarnings:
		return "refresh_earnings"
	default:
		return ""
	}
}

func parsedFileUpdate(path string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseFile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Parsed %d rows from %s", rows, path),
	}
}

func importStartUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportRows,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Importing %d rows...", total),
	}
}

// rowUpdate carries the outcome that was just recorded.
func rowUpdate(step, total int, o models.ImportOutcome) ProgressUpdate {
	mark := "✓"
	if !o.Succeeded() {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   ImportRows,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s: %s", step, total, mark, o.Row.Identifier, o.Result),
		Data:    o,
	}
}

func writeResultsUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteResults,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Results saved to %s", path),
	}
}

func refreshUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RefreshEarnings,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d earnings", count),
	}
}
