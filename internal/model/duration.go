package model

import (
	"strconv"
	"strings"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// FormatDuration renders a second count using the two most significant
// non-zero units among days, hours, minutes and seconds.
// 90065 renders as "1d1h" and 0 as "0s".
func FormatDuration(seconds uint64) string {
	if seconds == 0 {
		return "0s"
	}

	units := []struct {
		value  uint64
		suffix string
	}{
		{seconds / secondsPerDay, "d"},
		{seconds % secondsPerDay / secondsPerHour, "h"},
		{seconds % secondsPerHour / secondsPerMinute, "m"},
		{seconds % secondsPerMinute, "s"},
	}

	var sb strings.Builder
	parts := 0
	for _, u := range units {
		if u.value == 0 {
			continue
		}
		sb.WriteString(strconv.FormatUint(u.value, 10))
		sb.WriteString(u.suffix)
		parts++
		if parts == 2 {
			break
		}
	}
	return sb.String()
}
