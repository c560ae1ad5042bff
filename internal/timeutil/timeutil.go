package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var longUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDuration accepts time.ParseDuration syntax plus whole days (d) and
// weeks (w). Day and week components lead a compound value: "1w2d", "2d12h".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration string")
	}

	var total time.Duration
	rest := s
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			break
		}
		unit, ok := longUnits[rest[i]]
		if !ok {
			break
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration number in %q", s)
		}
		total += time.Duration(n) * unit
		rest = rest[i+1:]
	}
	if rest == "" {
		return total, nil
	}

	dur, err := time.ParseDuration(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return total + dur, nil
}

// ParseSince resolves a lower time bound for run history queries. It accepts
// an RFC 3339 timestamp or a duration looking back from now, with an optional
// leading '-' ("7d", "-36h").
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time string")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	dur, err := ParseDuration(strings.TrimPrefix(s, "-"))
	if err != nil {
		return time.Time{}, err
	}
	if dur < 0 {
		return time.Time{}, fmt.Errorf("duration must be positive: %s", s)
	}
	return now.Add(-dur), nil
}
