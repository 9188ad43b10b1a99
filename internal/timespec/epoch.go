package timespec

import (
	"fmt"
	"strings"
	"time"
)

// millisecondDigits is the length of a decimal Unix timestamp in
// milliseconds for any date between 2001 and 2286.
const millisecondDigits = 13

// ParseEpoch parses a decimal Unix timestamp.
// A 13-digit value is read as milliseconds; any other length as seconds.
//
// Surrounding whitespace is ignored and a trailing ".0" fraction (as
// produced by JSON encoders that emit floats) is tolerated.
func ParseEpoch(spec string) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if whole, frac, ok := strings.Cut(spec, "."); ok {
		if strings.Trim(frac, "0") != "" {
			return time.Time{}, fmt.Errorf("invalid timestamp: %s (fractional part not supported)", spec)
		}
		spec = whole
	}

	var value int64
	for _, r := range spec {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("invalid timestamp: %s (expected decimal digits)", spec)
		}
		value = value*10 + int64(r-'0')
		if value > 1<<53 {
			return time.Time{}, fmt.Errorf("invalid timestamp: %s (out of range)", spec)
		}
	}

	if len(spec) == millisecondDigits {
		return time.UnixMilli(value), nil
	}
	return time.Unix(value, 0), nil
}

// FormatRelative renders t relative to now, e.g. "in 2h" or "3d ago".
// The zero time is rendered as "-".
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := t.Sub(now)
	if diff < 0 {
		return formatSpan(-diff) + " ago"
	}
	return "in " + formatSpan(diff)
}

// formatSpan renders a non-negative duration in its largest whole unit.
func formatSpan(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
