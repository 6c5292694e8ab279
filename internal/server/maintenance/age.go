package maintenance

import (
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

// AgeProvider produces an equipment's current age in hours.
type AgeProvider interface {
	CurrentAge(eq *models.Equipment, now time.Time) int
}

// DefaultAgeProvider derives the age from the calendar for time mode and
// uses the stored reading for manualEntry and tracker equipment.
type DefaultAgeProvider struct{}

func (DefaultAgeProvider) CurrentAge(eq *models.Equipment, now time.Time) int {
	if eq.AgeAcquisitionType != models.AgeAcquisitionTime {
		return eq.Age
	}
	if now.Before(eq.Installation) {
		return 0
	}
	return int(now.Sub(eq.Installation) / time.Hour)
}
