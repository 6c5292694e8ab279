package models

import (
	"fmt"
	"time"
)

// AgeAcquisitionType selects how an equipment's current age is produced.
type AgeAcquisitionType string

const (
	AgeAcquisitionTime        AgeAcquisitionType = "time"
	AgeAcquisitionManualEntry AgeAcquisitionType = "manualEntry"
	AgeAcquisitionTracker     AgeAcquisitionType = "tracker"
)

// ParseAgeAcquisitionType validates s.
func ParseAgeAcquisitionType(s string) (AgeAcquisitionType, error) {
	switch t := AgeAcquisitionType(s); t {
	case AgeAcquisitionTime, AgeAcquisitionManualEntry, AgeAcquisitionTracker:
		return t, nil
	default:
		return "", fmt.Errorf("unknown age acquisition type %q", s)
	}
}

// Equipment is a serviceable component of an asset.
type Equipment struct {
	ID                 string
	UIID               string
	AssetID            string
	Name               string
	Brand              string
	Model              string
	AgeAcquisitionType AgeAcquisitionType
	// Age is in hours of use; meaningless in time mode.
	Age          int
	Installation time.Time
	AgeUpdatedAt time.Time
}

// UsageNotTracked as Task.UsagePeriodInHour disables usage tracking.
const UsageNotTracked = -1

// Task is a recurring maintenance requirement on an equipment.
type Task struct {
	ID                string
	UIID              string
	EquipmentID       string
	Name              string
	Description       string
	UsagePeriodInHour int
	PeriodInMonth     int
}

// Entry is a logged service occurrence. TaskID is nil for entries attached
// to the equipment only.
type Entry struct {
	ID          string
	UIID        string
	EquipmentID string
	TaskID      *string
	Name        string
	Date        time.Time
	Age         int
	Remarks     string
	Ack         bool
}

// IsOrphan reports whether the entry belongs to no task.
func (e *Entry) IsOrphan() bool { return e.TaskID == nil }
