package history

import (
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

// Entry is one row of an assignment history table.
type Entry struct {
	domain.Assignment
	StartLabel string `json:"start_label"`
	EndLabel   string `json:"end_label"`
	Duration   string `json:"duration"`
	Status     string `json:"status"`
	NotesLabel string `json:"notes_label"`
}

// Build derives the display rows for assignments, keeping their order.
func Build(assignments []domain.Assignment, now time.Time, loc *time.Location) []Entry {
	entries := make([]Entry, 0, len(assignments))
	for i := range assignments {
		entries = append(entries, NewEntry(&assignments[i], now, loc))
	}
	return entries
}

func NewEntry(a *domain.Assignment, now time.Time, loc *time.Location) Entry {
	entry := Entry{
		Assignment: *a,
		StartLabel: a.StartDate.French(),
		EndLabel:   OngoingLabel,
		Duration:   CalculateDuration(a.StartDate, a.EndDate, now, loc),
		Status:     Status(a),
		NotesLabel: EmptyNotes,
	}
	if a.EndDate != nil {
		entry.EndLabel = a.EndDate.French()
	}
	if a.Notes != nil && *a.Notes != "" {
		entry.NotesLabel = *a.Notes
	}
	return entry
}
