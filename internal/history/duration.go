// Package history derives the read-only views of assignment records: how
// long an assignment lasted and whether it is still running.
package history

import (
	"fmt"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

const (
	StatusActive     = "Active"
	StatusTerminated = "Terminée"
	OngoingLabel     = "En cours"
	EmptyNotes       = "-"
)

// Days counts whole calendar days between start and end, or between start
// and today when end is nil. Negative spans count as zero.
func Days(start domain.Date, end *domain.Date, now time.Time, loc *time.Location) int {
	until := domain.Today(now, loc)
	if end != nil {
		until = *end
	}
	days := start.DaysUntil(until)
	if days < 0 {
		return 0
	}
	return days
}

// CalculateDuration renders the elapsed time of an assignment in French:
// days under a month, 30-day months under a year, then years and months.
func CalculateDuration(start domain.Date, end *domain.Date, now time.Time, loc *time.Location) string {
	return FormatDays(Days(start, end, now, loc))
}

func FormatDays(days int) string {
	switch {
	case days < 30:
		return fmt.Sprintf("%d jours", days)
	case days < 365:
		return fmt.Sprintf("%d mois", days/30)
	}

	years := days / 365
	months := (days % 365) / 30
	unit := "an"
	if years > 1 {
		unit = "ans"
	}
	if months > 0 {
		return fmt.Sprintf("%d %s %d mois", years, unit, months)
	}
	return fmt.Sprintf("%d %s", years, unit)
}

func Status(a *domain.Assignment) string {
	if a.IsOpen() {
		return StatusActive
	}
	return StatusTerminated
}
