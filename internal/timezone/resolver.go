// Package timezone resolves viewer timezones and computes wall-clock offsets
// between UTC and named zones at specific instants. Offsets are derived from
// the runtime's timezone database rather than a rule table, so results stay
// correct across daylight-saving transitions.
package timezone

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimezone is returned when a timezone name cannot be resolved.
var ErrInvalidTimezone = errors.New("timezone: invalid timezone name")

// DefaultZone is the hard fallback when no candidate zone resolves.
const DefaultZone = "America/Chicago"

// aliases maps regional and legacy zone names onto the canonical zones the
// booking widget supports.
var aliases = map[string]string{
	"US/Eastern":            "America/New_York",
	"US/Central":            "America/Chicago",
	"US/Mountain":           "America/Denver",
	"US/Pacific":            "America/Los_Angeles",
	"US/Arizona":            "America/Phoenix",
	"US/Hawaii":             "Pacific/Honolulu",
	"US/Alaska":             "America/Anchorage",
	"America/Indianapolis":  "America/Indiana/Indianapolis",
	"America/Louisville":    "America/Kentucky/Louisville",
	"Asia/Calcutta":         "Asia/Kolkata",
	"Europe/Kiev":           "Europe/Kyiv",
	"GMT":                   "UTC",
	"Etc/UTC":               "UTC",
	"Etc/GMT":               "UTC",
}

// Normalize maps an alias onto its canonical zone name. Unknown names pass
// through unchanged.
func Normalize(tz string) string {
	if canonical, ok := aliases[tz]; ok {
		return canonical
	}
	return tz
}

// OffsetMinutes computes the wall-clock offset in minutes between UTC and the
// named zone at the given instant. The same instant is rendered under both
// zones and the signed hour/minute difference is taken, corrected for
// day-boundary wraparound into the range (-720, 720].
func OffsetMinutes(tz string, at time.Time) (int, error) {
	loc, err := time.LoadLocation(Normalize(tz))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}

	utc := at.UTC()
	local := at.In(loc)

	diff := (local.Hour()*60 + local.Minute()) - (utc.Hour()*60 + utc.Minute())
	if diff > 720 {
		diff -= 1440
	}
	if diff <= -720 {
		diff += 1440
	}
	return diff, nil
}

// Resolve returns the first candidate that names a loadable zone, after alias
// normalization. When none resolves it falls back to the process-local zone,
// and finally to DefaultZone. Resolve never fails; callers that need to
// distinguish a bad name from a fallback use OffsetMinutes directly.
func Resolve(candidates ...string) string {
	for _, tz := range candidates {
		if tz == "" {
			continue
		}
		normalized := Normalize(tz)
		if _, err := time.LoadLocation(normalized); err == nil {
			return normalized
		}
	}
	if local := time.Now().Location().String(); local != "" && local != "Local" {
		if _, err := time.LoadLocation(local); err == nil {
			return local
		}
	}
	return DefaultZone
}

// Location loads the canonical *time.Location for tz, falling back to UTC on
// an unresolvable name.
func Location(tz string) *time.Location {
	loc, err := time.LoadLocation(Normalize(tz))
	if err != nil {
		return time.UTC
	}
	return loc
}
