package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownZone indicates the supplied IANA timezone name could not be resolved.
var ErrUnknownZone = errors.New("timeutil: unknown timezone")

// NormalizeLocal interprets the wall-clock fields of local in the named IANA zone
// and returns the equivalent UTC instant. An empty zone defaults to UTC.
func NormalizeLocal(local time.Time, zone string) (time.Time, error) {
	loc := time.UTC
	if zone != "" {
		resolved, err := time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
		}
		loc = resolved
	}

	instant := time.Date(
		local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(),
		loc,
	)
	return instant.UTC(), nil
}

// EnsureUTC defensively converts any timestamp to UTC. Timestamps read back from
// some drivers carry a local offset even though they were stored as UTC.
func EnsureUTC(t time.Time) time.Time {
	return t.UTC()
}

// DayKey returns the calendar date (YYYY-MM-DD) of the instant in the named zone,
// falling back to UTC when the zone is empty or unknown.
func DayKey(instant time.Time, zone string) string {
	loc := time.UTC
	if zone != "" {
		if resolved, err := time.LoadLocation(zone); err == nil {
			loc = resolved
		}
	}
	return instant.In(loc).Format("2006-01-02")
}
