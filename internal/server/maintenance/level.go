package maintenance

import (
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

const (
	// hoursPerMonth approximates a month as 30.5 days for the proximity window.
	hoursPerMonth = 30.5 * 24

	// A task is due soon within a tenth of its period, both in usage
	// hours and in calendar time.
	dueSoonFraction = 10
)

// ProximityWindow is the "due soon" calendar window of a task.
func ProximityWindow(task *models.Task) time.Duration {
	return time.Duration(float64(task.PeriodInMonth) * hoursPerMonth * float64(time.Hour) / dueSoonFraction)
}

// UsageThreshold is ceil(UsagePeriodInHour / 10).
func UsageThreshold(task *models.Task) int {
	return (task.UsagePeriodInHour + dueSoonFraction - 1) / dueSoonFraction
}

// UsageTracked reports whether usage hours take part in the level.
func UsageTracked(task *models.Task, eq *models.Equipment) bool {
	return eq.AgeAcquisitionType != models.AgeAcquisitionTime && task.UsagePeriodInHour > 0
}

// Level classifies a task as fine, due soon or overdue.
//
// The proximity test uses the absolute distance to the due date, so a
// task is due soon on both sides of nextDue. The overdue check runs
// first, which makes the side after nextDue unreachable in practice.
func (c *Calculator) Level(task *models.Task, eq *models.Equipment, entries []*models.Entry) models.Level {
	now := c.clock.Now()
	nextDue := c.NextDueDate(task, eq, entries)

	delay := nextDue.Sub(now)
	if delay < 0 {
		delay = -delay
	}
	window := ProximityWindow(task)
	overdue := !nextDue.After(now)

	if UsageTracked(task, eq) {
		hoursLeft := c.TimeInHourLeft(task, eq, entries)
		switch {
		case hoursLeft <= 0 || overdue:
			return models.LevelOverdue
		case hoursLeft < UsageThreshold(task) || delay <= window:
			return models.LevelDueSoon
		default:
			return models.LevelFine
		}
	}

	switch {
	case overdue:
		return models.LevelOverdue
	case delay <= window:
		return models.LevelDueSoon
	default:
		return models.LevelFine
	}
}

// Worst returns the highest level in levels, LevelFine for none.
func Worst(levels ...models.Level) models.Level {
	worst := models.LevelFine
	for _, l := range levels {
		if l > worst {
			worst = l
		}
	}
	return worst
}
