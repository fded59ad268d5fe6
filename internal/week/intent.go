package week

import (
	"strings"
	"time"
)

// Direct phrases that always mean next week. Checked before any
// weekday-name matching.
var nextWeekPhrases = []string{
	"next week",
	"for next week",
	"starting next week",
	"this coming week",
	"following week",
}

// Weekday names in time.Weekday order (Sunday = 0). The scan order is
// fixed so the first match wins deterministically.
var weekdayNames = []string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// DetectNextWeek reports whether free-text input (typically a voice
// transcript) refers to next week rather than the current one.
//
// A named weekday earlier in the week than ref's day is taken to mean
// next week's occurrence ("monday" spoken on a Thursday). A weekday
// equal to or later than ref's day falls through to false; when the
// named day equals today this is ambiguous, and the behavior is kept
// as-is rather than guessed at.
func DetectNextWeek(text string, ref time.Time) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}

	for _, phrase := range nextWeekPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	refDay := int(ref.Weekday())
	for idx, name := range weekdayNames {
		if strings.Contains(lower, name) {
			return refDay > idx
		}
	}

	return false
}
