package tasks

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/earnx/internal/models"
)

// SortColumn is a sortable earnings column.
type SortColumn int

const (
	SortCreatedAt SortColumn = iota
	SortAmount
	SortClaimed
)

func (c SortColumn) String() string {
	switch c {
	case SortAmount:
		return "amount"
	case SortClaimed:
		return "claimed"
	default:
		return "created"
	}
}

// ParseSortColumn maps "amount", "claimed" and "created"/"createdAt" to a column; anything else sorts by creation.
func ParseSortColumn(name string) SortColumn {
	switch strings.ToLower(name) {
	case "amount":
		return SortAmount
	case "claimed":
		return SortClaimed
	default:
		return SortCreatedAt
	}
}

// SelectionState summarizes how much of the visible list is selected.
type SelectionState int

const (
	SelectedNone SelectionState = iota
	SelectedSome
	SelectedAll
)

// Totals are amount sums over the visible earnings, in micro-USD.
type Totals struct {
	Count     int
	Total     int64
	Claimed   int64
	Unclaimed int64
}

const dateLayout = "2006-01-02"

// EarningsView is the filtered, sorted and selectable projection of the last fetched list.
//
// The zero value shows everything sorted by creation time, oldest first; use [NewEarningsView]
// for the default newest-first order.
type EarningsView struct {
	Search     string
	From       string // inclusive YYYY-MM-DD, empty for no lower bound
	To         string // inclusive YYYY-MM-DD, empty for no upper bound
	Sort       SortColumn
	Descending bool

	all      []models.Earning
	selected map[string]bool
}

// NewEarningsView returns an empty view sorted by creation time, newest first.
func NewEarningsView() *EarningsView {
	return &EarningsView{Sort: SortCreatedAt, Descending: true}
}

// SetData replaces the list and clears the selection.
func (v *EarningsView) SetData(earnings []models.Earning) {
	v.all = slices.Clone(earnings)
	v.selected = nil
}

// Len returns the size of the unfiltered list.
func (v *EarningsView) Len() int { return len(v.all) }

// Visible returns the earnings passing the search and date filters, in sort order.
func (v *EarningsView) Visible() []models.Earning {
	query := strings.ToLower(strings.TrimSpace(v.Search))
	from, hasFrom := parseDay(v.From)
	to, hasTo := parseDay(v.To)

	out := make([]models.Earning, 0, len(v.all))
	for _, e := range v.all {
		if query != "" && !matchesSearch(e, query) {
			continue
		}
		if (hasFrom || hasTo) && !inRange(e.CreatedAt, from, to, hasFrom, hasTo) {
			continue
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b models.Earning) int {
		var c int
		switch v.Sort {
		case SortAmount:
			c = cmp.Compare(a.Amount, b.Amount)
		case SortClaimed:
			c = compareBool(a.Claimed, b.Claimed)
		default:
			c = strings.Compare(a.CreatedAt, b.CreatedAt)
		}
		if v.Descending {
			return -c
		}
		return c
	})
	return out
}

func matchesSearch(e models.Earning, query string) bool {
	return strings.Contains(strings.ToLower(e.Song()), query) ||
		strings.Contains(strings.ToLower(e.StakeAddress), query) ||
		strings.Contains(strings.ToLower(e.Note()), query)
}

// inRange keeps earnings whose creation date cannot be read.
func inRange(createdAt string, from, to time.Time, hasFrom, hasTo bool) bool {
	day, _, _ := strings.Cut(createdAt, "T")
	created, ok := parseDay(day)
	if !ok {
		return true
	}
	if hasFrom && created.Before(from) {
		return false
	}
	if hasTo && created.After(to) {
		return false
	}
	return true
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// Totals sums the visible earnings.
func (v *EarningsView) Totals() Totals {
	var t Totals
	for _, e := range v.Visible() {
		t.Count++
		t.Total += e.Amount
		if e.Claimed {
			t.Claimed += e.Amount
		}
	}
	t.Unclaimed = t.Total - t.Claimed
	return t
}

// Toggle flips the selection of id. Earnings without an id cannot be selected.
func (v *EarningsView) Toggle(id string) {
	if id == "" {
		return
	}
	if v.selected == nil {
		v.selected = make(map[string]bool)
	}
	if v.selected[id] {
		delete(v.selected, id)
	} else {
		v.selected[id] = true
	}
}

// IsSelected reports whether id is selected.
func (v *EarningsView) IsSelected(id string) bool { return v.selected[id] }

// SelectAll selects every visible earning that has an id.
func (v *EarningsView) SelectAll() {
	for _, e := range v.Visible() {
		if id := e.Key(); id != "" {
			if v.selected == nil {
				v.selected = make(map[string]bool)
			}
			v.selected[id] = true
		}
	}
}

// DeselectAll clears the selection.
func (v *EarningsView) DeselectAll() { v.selected = nil }

// SelectedIDs returns the selected ids in sorted order.
func (v *EarningsView) SelectedIDs() []string {
	ids := make([]string, 0, len(v.selected))
	for id := range v.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Selection reports whether none, some or all of the visible earnings are selected.
func (v *EarningsView) Selection() SelectionState {
	visible := v.Visible()
	if len(visible) == 0 {
		return SelectedNone
	}

	n := 0
	for _, e := range visible {
		if v.selected[e.Key()] {
			n++
		}
	}
	switch n {
	case 0:
		return SelectedNone
	case len(visible):
		return SelectedAll
	default:
		return SelectedSome
	}
}
