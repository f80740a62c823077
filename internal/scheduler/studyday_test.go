package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStudyDayStart(t *testing.T) {
	tests := []struct {
		name         string
		now          time.Time
		dayStartHour int
		want         time.Time
	}{
		{
			"afternoon belongs to today",
			time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), 4,
			time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			"after midnight before day start belongs to yesterday",
			time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC), 4,
			time.Date(2024, 2, 29, 4, 0, 0, 0, time.UTC),
		},
		{
			"exactly at day start belongs to today",
			time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC), 4,
			time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			"midnight day start never rolls back",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0,
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"one nanosecond before day start",
			time.Date(2024, 3, 1, 3, 59, 59, 999999999, time.UTC), 4,
			time.Date(2024, 2, 29, 4, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StudyDayStart(tc.now, tc.dayStartHour))
		})
	}
}

func TestNextStudyDayStart(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 2, 4, 0, 0, 0, time.UTC), NextStudyDayStart(now, 4))

	// Before the day-start hour, "tomorrow" is actually later today.
	early := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC), NextStudyDayStart(early, 4))
}
