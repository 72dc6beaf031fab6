package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the DD/MM/YYYY layout used by both feeds.
const DateLayout = "02/01/2006"

// ParseDate parses a DD/MM/YYYY cell into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
	}
	return t, nil
}

// parseIntOrZero parses a counter cell, returning 0 for blank, negative or
// unparseable input. Some exports write counters as "1234.0", so a whole
// float is accepted.
func parseIntOrZero(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return max(v, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int64(f)) {
		return 0
	}
	return int64(f)
}
