package week

import "time"

// DateFormat is the calendar-date layout used to key weekly schedules.
const DateFormat = "2006-01-02"

// Resolve returns the Monday of the week containing ref, as a date-only
// value (midnight in ref's location). Sunday counts as the tail of the
// previous week, so a Sunday reference resolves to the Monday six days
// earlier. If nextWeek is true the following Monday is returned.
func Resolve(ref time.Time, nextWeek bool) time.Time {
	dow := int(ref.Weekday())
	offset := 1 - dow
	if dow == 0 {
		offset = -6
	}

	monday := ref.AddDate(0, 0, offset)
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, ref.Location())

	if nextWeek {
		monday = monday.AddDate(0, 0, 7)
	}
	return monday
}

// ResolveDate is Resolve formatted as YYYY-MM-DD.
func ResolveDate(ref time.Time, nextWeek bool) string {
	return Resolve(ref, nextWeek).Format(DateFormat)
}
