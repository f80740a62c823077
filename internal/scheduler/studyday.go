package scheduler

import "time"

// StudyDayStart returns the instant the current study day began. A study day
// runs from dayStartHour to dayStartHour the next calendar day, so a review
// at 2am with a 4am day-start still counts toward yesterday's quotas.
func StudyDayStart(now time.Time, dayStartHour int) time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), dayStartHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// NextStudyDayStart returns the instant the next study day begins. Cards due
// after this point are outside today's session horizon.
func NextStudyDayStart(now time.Time, dayStartHour int) time.Time {
	return StudyDayStart(now, dayStartHour).AddDate(0, 0, 1)
}
