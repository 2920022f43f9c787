package reservation

import (
	"fmt"
	"strconv"
	"strings"
)

// Proximity window around a preferred time for near-miss suggestions,
// minutes. Asymmetric: diners accept later more readily than earlier.
// Both bounds inclusive; an exact match is handled separately.
const (
	ProximityEarlier = 30
	ProximityLater   = 60
)

// NormalizeTime converts a time string to 24-hour HH:MM. Accepts
// "HH:MM", "HH:MM:SS", and 12-hour forms like "7:30 PM" or "7:30pm".
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty time")
	}

	upper := strings.ToUpper(s)
	meridiem := ""
	for _, m := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, m) {
			meridiem = m
			upper = strings.TrimSpace(strings.TrimSuffix(upper, m))
			break
		}
	}

	parts := strings.Split(upper, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("unrecognized time %q", s)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("unrecognized time %q", s)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("unrecognized time %q", s)
	}

	switch meridiem {
	case "PM":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("unrecognized time %q", s)
		}
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("unrecognized time %q", s)
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour < 0 || hour > 23 {
			return "", fmt.Errorf("unrecognized time %q", s)
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// To12Hour renders HH:MM for display, e.g. "19:00" -> "7:00 PM".
func To12Hour(hhmm string) string {
	hour, minute, err := splitHHMM(hhmm)
	if err != nil {
		return hhmm
	}
	meridiem := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		meridiem = "PM"
	case hour > 12:
		hour -= 12
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, meridiem)
}

// MinutesDiff returns candidate minus requested, in minutes.
func MinutesDiff(requested, candidate string) (int, error) {
	rh, rm, err := splitHHMM(requested)
	if err != nil {
		return 0, err
	}
	ch, cm, err := splitHHMM(candidate)
	if err != nil {
		return 0, err
	}
	return (ch*60 + cm) - (rh*60 + rm), nil
}

// WithinProximity reports whether candidate falls inside the asymmetric
// window around requested, excluding the exact match.
func WithinProximity(requested, candidate string) bool {
	diff, err := MinutesDiff(requested, candidate)
	if err != nil {
		return false
	}
	return diff != 0 && diff >= -ProximityEarlier && diff <= ProximityLater
}

func splitHHMM(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("not HH:MM: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("not HH:MM: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("not HH:MM: %q", s)
	}
	return h, m, nil
}
