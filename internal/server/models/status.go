package models

import "time"

// Level is the alert severity of a task.
type Level int

const (
	LevelFine    Level = 1
	LevelDueSoon Level = 2
	LevelOverdue Level = 3
)

func (l Level) String() string {
	switch l {
	case LevelFine:
		return "fine"
	case LevelDueSoon:
		return "due soon"
	case LevelOverdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// TaskStatus holds the derived fields of a task. It is computed on every
// read and never stored.
type TaskStatus struct {
	NextDueDate     time.Time
	Level           Level
	UsageInHourLeft int
}

// TaskView is a task together with its computed status.
type TaskView struct {
	Task   *Task
	Status TaskStatus
}

// EquipmentStatus is the worst task level found on one equipment.
type EquipmentStatus struct {
	Equipment *Equipment
	Level     Level
	Tasks     []TaskView
}
