package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeClockTime rewrites a short "HH:MM" clock value, combined with a
// day's ISO date, into an epoch-millis instant (spec §4.1). Fully-qualified
// instants (RFC3339 or already-numeric epoch millis as a string) pass
// through unchanged. The day's date is mandatory for bare clock values —
// the teacher's source occasionally accepted "HH:MM" without one; this spec
// rejects that ambiguity rather than guessing a date (spec §9).
func NormalizeClockTime(value, dayDate string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ms, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UnixMilli(), nil
	}

	if isClockOnly(value) {
		if dayDate == "" {
			return 0, fmt.Errorf("%w: clock time %q requires a day date to normalize", ErrValidation, value)
		}
		instant := dayDate + "T" + value + ":00Z"
		if len(value) == 5 { // HH:MM
			t, err := time.Parse("2006-01-02T15:04:05Z", instant)
			if err != nil {
				return 0, fmt.Errorf("%w: invalid clock time %q: %v", ErrValidation, value, err)
			}
			return t.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("%w: unrecognized time format %q", ErrValidation, value)
}

func isClockOnly(v string) bool {
	if len(v) != 5 || v[2] != ':' {
		return false
	}
	for i, c := range v {
		if i == 2 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
