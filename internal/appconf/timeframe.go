package appconf

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Timeframe is a duration expressed in the fetch-interval grammar:
// an integer followed by a unit from {s, min, h, d, w, mo}, long and spaced
// forms included ("2s", "5mins", "2 minutes", "3 months"). A month is 30
// days, a week 7 days, a day 24 hours; DST and leap events are ignored.
// Plain Go durations like "2m" are rejected because "m" is ambiguous
// between minutes and months.
type Timeframe time.Duration

// Duration returns the timeframe as a time.Duration.
func (t Timeframe) Duration() time.Duration {
	return time.Duration(t)
}

// String renders the timeframe using the largest unit that divides it evenly.
func (t Timeframe) String() string {
	d := time.Duration(t)
	units := []struct {
		unit time.Duration
		name string
	}{
		{30 * 24 * time.Hour, "mo"},
		{7 * 24 * time.Hour, "w"},
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "min"},
	}
	for _, u := range units {
		if d >= u.unit && d%u.unit == 0 {
			return fmt.Sprintf("%d%s", d/u.unit, u.name)
		}
	}
	return fmt.Sprintf("%ds", d/time.Second)
}

// Set implements flag.Value.
func (t *Timeframe) Set(s string) error {
	parsed, err := ParseTimeframe(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var timeframeUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"mo": 30 * 24 * time.Hour, "month": 30 * 24 * time.Hour, "months": 30 * 24 * time.Hour,
}

// ParseTimeframe parses the grammar described on Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty timeframe")
	}

	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("timeframe %q must start with a number", s)
	}

	var n int64
	for _, c := range trimmed[:i] {
		digit := int64(c - '0')
		if n > (math.MaxInt64-digit)/10 {
			return 0, fmt.Errorf("timeframe %q is too large", s)
		}
		n = n*10 + digit
	}

	unitStr := strings.TrimSpace(trimmed[i:])
	unit, ok := timeframeUnits[unitStr]
	if !ok {
		return 0, fmt.Errorf("timeframe %q has unknown unit %q (use s, min, h, d, w or mo)", s, unitStr)
	}
	if n != 0 && time.Duration(n) > math.MaxInt64/unit {
		return 0, fmt.Errorf("timeframe %q is too large", s)
	}
	return Timeframe(time.Duration(n) * unit), nil
}
