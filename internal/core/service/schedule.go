package service

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// FailsafeRefreshInterval bounds how long a sensor-only drift can stay
	// invisible when the diff deems it irrelevant.
	FailsafeRefreshInterval = 30 * time.Second
	// ExpiryCheckInterval is the cadence of the end-time expiry scan.
	ExpiryCheckInterval = 60 * time.Second
	// DebugLogInterval throttles snapshot debug logging.
	DebugLogInterval = 5 * time.Second
)

var clockRegexp = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseClock parses a strict 24-hour HH:MM value.
func ParseClock(s string) (hour, minute int, ok bool) {
	m := clockRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	fmt.Sscanf(m[1], "%d", &hour)
	fmt.Sscanf(m[2], "%d", &minute)
	return hour, minute, true
}

// ValidClock reports whether s is a strict HH:MM value.
func ValidClock(s string) bool {
	_, _, ok := ParseClock(s)
	return ok
}

// MinutesOfDay converts HH:MM to minutes since midnight. Malformed values
// parse as minute 0, which in practice forces immediate expiry; the device
// never reports such values under normal operation.
func MinutesOfDay(s string) int {
	h, m, ok := ParseClock(s)
	if !ok {
		return 0
	}
	return h*60 + m
}

// CurrentTime formats the local clock as HH:MM.
func CurrentTime(now time.Time) string {
	return now.Format("15:04")
}

// EndTime adds a duration in minutes to a HH:MM start time on the current
// date. Crossing midnight wraps via ordinary date arithmetic.
func EndTime(start string, durationMinutes int, now time.Time) string {
	h, m, ok := ParseClock(start)
	if !ok {
		h, m = 0, 0
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	return t.Add(time.Duration(durationMinutes) * time.Minute).Format("15:04")
}

// Clock12h renders a strict HH:MM value on a 12-hour clock. Malformed
// values fall back to 00:00.
func Clock12h(s string) string {
	h, m, ok := ParseClock(s)
	if !ok {
		h, m = 0, 0
	}
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}

// TodayMask returns the single-day bitmask for the current weekday,
// Monday = bit 0 .. Sunday = bit 6.
func TodayMask(now time.Time) int {
	return 1 << ((int(now.Weekday()) + 6) % 7)
}

// MaskFromDays folds checked weekday bit indexes into a 7-bit mask.
func MaskFromDays(days []int) int {
	mask := 0
	for _, d := range days {
		if d >= 0 && d <= 6 {
			mask |= 1 << d
		}
	}
	return mask
}

// DaysFromMask expands a 7-bit mask into weekday bit indexes.
func DaysFromMask(mask int) []int {
	var days []int
	for i := 0; i <= 6; i++ {
		if mask&(1<<i) != 0 {
			days = append(days, i)
		}
	}
	return days
}
