package calendar

import (
	"fmt"
	"time"
)

// WallClockLayout is the naive local timestamp format used by the dashboard
// forms: a calendar date and minute-precision time with no UTC offset.
const WallClockLayout = "2006-01-02T15:04"

// ToInstant interprets a naive wall-clock string as local time in the given
// zone and returns the equivalent UTC instant. The zone's UTC offset is
// derived per call for the specific calendar date, so conversions on both
// sides of a DST transition within the same month get their own offset.
func ToInstant(wallClock string, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not load location for timezone %s: %w", zone, err)
	}

	naive, err := time.Parse(WallClockLayout, padWallClock(wallClock))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse wall-clock time %q: %w", wallClock, err)
	}

	// Probe the zone's offset on that date by looking at UTC noon of the
	// same calendar day. Noon keeps the probe on the intended date in every
	// zone with an offset within ±12h.
	probe := time.Date(naive.Year(), naive.Month(), naive.Day(), 12, 0, 0, 0, time.UTC)
	_, offset := probe.In(loc).Zone()

	fixed := time.FixedZone(zone, offset)
	instant := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), 0, 0, fixed)
	return instant.UTC(), nil
}

// ToWallClock formats an absolute instant as a naive wall-clock string in the
// given zone, truncated to minute precision.
func ToWallClock(instant time.Time, zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("could not load location for timezone %s: %w", zone, err)
	}
	return instant.In(loc).Format(WallClockLayout), nil
}

// padWallClock tolerates partial minute fields submitted by upstream forms:
// "2024-11-16T14:3" is read as "2024-11-16T14:30".
func padWallClock(s string) string {
	if len(s) == len(WallClockLayout)-1 {
		return s + "0"
	}
	return s
}
