package corpus

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTimedelta renders d the way pandas prints a Timedelta, for example
// "0 days 00:00:01.500000". Release CSVs use this form so existing readers of
// the corpus keep parsing them.
func FormatTimedelta(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	frac := d - seconds*time.Second

	out := fmt.Sprintf("%s%d days %02d:%02d:%02d", sign, days, hours, minutes, seconds)
	switch {
	case frac == 0:
		return out
	case frac%time.Microsecond == 0:
		return out + fmt.Sprintf(".%06d", frac/time.Microsecond)
	default:
		return out + fmt.Sprintf(".%09d", int64(frac))
	}
}

// ParseTimedelta reads the form written by FormatTimedelta.
func ParseTimedelta(s string) (time.Duration, error) {
	raw := strings.TrimSpace(s)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	dayPart, clock, ok := strings.Cut(raw, " days ")
	if !ok {
		dayPart, clock, ok = strings.Cut(raw, " day ")
	}
	if !ok {
		return 0, fmt.Errorf("parse timedelta %q: missing day component", s)
	}
	days, err := strconv.Atoi(dayPart)
	if err != nil {
		return 0, fmt.Errorf("parse timedelta %q: %w", s, err)
	}

	clock, fracText, _ := strings.Cut(clock, ".")
	fields := strings.Split(clock, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("parse timedelta %q: expected HH:MM:SS", s)
	}
	var parts [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return 0, fmt.Errorf("parse timedelta %q: %w", s, err)
		}
		parts[i] = v
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(parts[0])*time.Hour +
		time.Duration(parts[1])*time.Minute +
		time.Duration(parts[2])*time.Second
	if fracText != "" {
		if len(fracText) > 9 {
			return 0, fmt.Errorf("parse timedelta %q: fraction too precise", s)
		}
		padded := fracText + strings.Repeat("0", 9-len(fracText))
		ns, err := strconv.Atoi(padded)
		if err != nil {
			return 0, fmt.Errorf("parse timedelta %q: %w", s, err)
		}
		d += time.Duration(ns)
	}
	if neg {
		d = -d
	}
	return d, nil
}
