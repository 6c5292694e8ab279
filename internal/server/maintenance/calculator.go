// Package maintenance computes due dates and alert levels of maintenance
// tasks. Everything here is a pure function of the task, its equipment, the
// entry history and the clock; nothing is cached between calls.
package maintenance

import (
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/timex"
)

// Calculator derives task status.
type Calculator struct {
	clock Clock
	ages  AgeProvider
}

// NewCalculator returns a Calculator using clock and the default age
// provider. A nil clock means SystemClock.
func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calculator{clock: clock, ages: DefaultAgeProvider{}}
}

// WithAgeProvider returns a copy of c using p.
func (c *Calculator) WithAgeProvider(p AgeProvider) *Calculator {
	cp := *c
	cp.ages = p
	return &cp
}

// Now returns the calculator's current time.
func (c *Calculator) Now() time.Time { return c.clock.Now() }

// LastAcknowledgedEntry returns the acknowledged entry of task with the
// latest date, or nil. Entries of other tasks or equipment are skipped.
// On identical dates the greater ID wins.
func (c *Calculator) LastAcknowledgedEntry(task *models.Task, entries []*models.Entry) *models.Entry {
	var last *models.Entry
	for _, e := range entries {
		if !e.Ack || e.EquipmentID != task.EquipmentID || e.TaskID == nil || *e.TaskID != task.ID {
			continue
		}
		if last == nil || e.Date.After(last.Date) || (e.Date.Equal(last.Date) && e.ID > last.ID) {
			last = e
		}
	}
	return last
}

// LastAcknowledgedAge is the age snapshot of the last acknowledged entry, or 0.
func (c *Calculator) LastAcknowledgedAge(task *models.Task, entries []*models.Entry) int {
	if last := c.LastAcknowledgedEntry(task, entries); last != nil {
		return last.Age
	}
	return 0
}

// TimeInHourLeft is the remaining usage budget in hours. It is 0 when the
// task is not tracked by usage and may be negative when overdue.
func (c *Calculator) TimeInHourLeft(task *models.Task, eq *models.Equipment, entries []*models.Entry) int {
	if task.UsagePeriodInHour == models.UsageNotTracked {
		return 0
	}
	age := c.ages.CurrentAge(eq, c.clock.Now())
	return task.UsagePeriodInHour + c.LastAcknowledgedAge(task, entries) - age
}

// LastAcknowledgedDate is the date of the last acknowledged entry or, with
// no history, the installation date of the equipment.
func (c *Calculator) LastAcknowledgedDate(task *models.Task, eq *models.Equipment, entries []*models.Entry) time.Time {
	if last := c.LastAcknowledgedEntry(task, entries); last != nil {
		return last.Date
	}
	return eq.Installation
}

// NextDueDate adds PeriodInMonth calendar months to the last acknowledged date.
func (c *Calculator) NextDueDate(task *models.Task, eq *models.Equipment, entries []*models.Entry) time.Time {
	return timex.AddMonths(c.LastAcknowledgedDate(task, eq, entries), task.PeriodInMonth)
}

// Status computes the exported derived fields of a task.
func (c *Calculator) Status(task *models.Task, eq *models.Equipment, entries []*models.Entry) (models.TaskStatus, error) {
	if eq == nil {
		return models.TaskStatus{}, common.NewInvariantError("task", task.ID, "equipment "+task.EquipmentID+" does not exist")
	}
	if eq.ID != task.EquipmentID {
		return models.TaskStatus{}, common.NewInvariantError("task", task.ID, "belongs to equipment "+task.EquipmentID+", not "+eq.ID)
	}

	return models.TaskStatus{
		NextDueDate:     c.NextDueDate(task, eq, entries),
		Level:           c.Level(task, eq, entries),
		UsageInHourLeft: c.TimeInHourLeft(task, eq, entries),
	}, nil
}
