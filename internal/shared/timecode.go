package shared

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimestamp parses a "mm:ss" (or "hh:mm:ss") stanza timestamp into seconds.
func ParseTimestamp(ts string) (int, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrInvalidInput)
	}

	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: timestamp %q must be mm:ss", ErrInvalidInput, ts)
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: timestamp %q has non-numeric field", ErrInvalidInput, ts)
		}
		// minutes and seconds fields roll over at 60
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%w: timestamp %q field out of range", ErrInvalidInput, ts)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatTimestamp formats seconds as "mm:ss", switching to "h:mm:ss" past one hour.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatSRTTimestamp formats seconds in SubRip notation (hh:mm:ss,mmm).
func FormatSRTTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d,000", seconds/3600, (seconds%3600)/60, seconds%60)
}
