// Package durfmt renders and parses split times.
package durfmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignMode selects how the sign of a duration is shown.
type SignMode int

const (
	// SignNone never prints a sign.
	SignNone SignMode = iota
	// SignNegative prints "-" for negative values only.
	SignNegative
	// SignAlways prints "-" or "+".
	SignAlways
)

// Placeholder is shown where no time is recorded.
const Placeholder = "--:--.---"

// Format renders d with as few units as needed:
// "SS.mmm", "MM:SS.mmm" or "H:MM:SS.mmm".
func Format(d time.Duration, mode SignMode) string {
	sign := signFor(d, mode)
	h, m, s, ms := split(d)
	switch {
	case h > 0:
		return fmt.Sprintf("%s%d:%02d:%02d.%03d", sign, h, m, s, ms)
	case m > 0:
		return fmt.Sprintf("%s%02d:%02d.%03d", sign, m, s, ms)
	default:
		return fmt.Sprintf("%s%02d.%03d", sign, s, ms)
	}
}

// FormatClock renders d as "MM:SS.mmm" with minutes unbounded, the way the
// main timer is shown. Negative values get a leading "-".
func FormatClock(d time.Duration) string {
	sign := signFor(d, SignNegative)
	h, m, s, ms := split(d)
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, h*60+m, s, ms)
}

// FormatLong renders d as "MM:SS.mmm", or "HH:MM:SS.mmm" past one hour.
func FormatLong(d time.Duration) string {
	sign := signFor(d, SignNegative)
	h, m, s, ms := split(d)
	if h > 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, h, m, s, ms)
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, m, s, ms)
}

// Parse reads any of the formats produced by this package, with an optional
// leading sign and optional fractional part.
func Parse(value string) (time.Duration, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("empty duration")
	}
	neg := false
	switch v[0] {
	case '-':
		neg = true
		v = v[1:]
	case '+':
		v = v[1:]
	}
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	secPart := parts[len(parts)-1]
	whole, frac, hasFrac := strings.Cut(secPart, ".")
	secs, err := parseUnit(whole, value)
	if err != nil {
		return 0, err
	}
	if len(parts) > 1 && secs >= 60 {
		return 0, fmt.Errorf("seconds out of range in %q", value)
	}
	total := time.Duration(secs) * time.Second
	if hasFrac {
		if frac == "" || len(frac) > 3 {
			return 0, fmt.Errorf("invalid fraction in %q", value)
		}
		ms, err := parseUnit(frac+strings.Repeat("0", 3-len(frac)), value)
		if err != nil {
			return 0, err
		}
		total += time.Duration(ms) * time.Millisecond
	}
	if len(parts) >= 2 {
		mins, err := parseUnit(parts[len(parts)-2], value)
		if err != nil {
			return 0, err
		}
		if len(parts) == 3 && mins >= 60 {
			return 0, fmt.Errorf("minutes out of range in %q", value)
		}
		total += time.Duration(mins) * time.Minute
	}
	if len(parts) == 3 {
		hours, err := parseUnit(parts[0], value)
		if err != nil {
			return 0, err
		}
		total += time.Duration(hours) * time.Hour
	}
	if neg {
		total = -total
	}
	return total, nil
}

func parseUnit(s, original string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration %q", original)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration %q", original)
	}
	return n, nil
}

func signFor(d time.Duration, mode SignMode) string {
	switch mode {
	case SignNegative:
		if d < 0 {
			return "-"
		}
	case SignAlways:
		if d < 0 {
			return "-"
		}
		return "+"
	}
	return ""
}

func split(d time.Duration) (h, m, s, ms int64) {
	total := d.Milliseconds()
	if total < 0 {
		total = -total
	}
	h = total / 3_600_000
	m = (total % 3_600_000) / 60_000
	s = (total % 60_000) / 1_000
	ms = total % 1_000
	return h, m, s, ms
}
