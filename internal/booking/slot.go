package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/medassist-ai/intake-platform/internal/timezone"
)

// DefaultAppointmentMinutes is the fixed appointment length.
const DefaultAppointmentMinutes = 45

// providerStampPattern matches the calendar provider's fixed-offset slot
// timestamps exactly: date, hour, minute, second, signed HH:MM offset.
var providerStampPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2})T(\d{2}):(\d{2}):(\d{2})([+-]\d{2}:\d{2})$`)

// TimeSlot is one bookable interval. DisplayStart/DisplayEnd are wall-clock
// times of day rendered in the viewer's selected timezone and are display
// only; ProviderTimestamp is the provider's original fixed-offset string and
// is the only field used for booking.
type TimeSlot struct {
	DisplayStart      string `json:"display_start"`
	DisplayEnd        string `json:"display_end"`
	ProviderTimestamp string `json:"provider_timestamp"`
	Available         bool   `json:"available"`
}

// providerStamp is a decomposed provider timestamp.
type providerStamp struct {
	Date   string // YYYY-MM-DD
	Hour   int
	Minute int
	Second int
	Offset string // signed HH:MM offset substring, e.g. "-06:00"
}

func parseProviderStamp(raw string) (providerStamp, error) {
	m := providerStampPattern.FindStringSubmatch(raw)
	if m == nil {
		return providerStamp{}, fmt.Errorf("%w: %q", ErrMalformedProviderTimestamp, raw)
	}
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	second, _ := strconv.Atoi(m[4])
	if hour > 23 || minute > 59 || second > 59 {
		return providerStamp{}, fmt.Errorf("%w: %q", ErrMalformedProviderTimestamp, raw)
	}
	return providerStamp{
		Date:   m[1],
		Hour:   hour,
		Minute: minute,
		Second: second,
		Offset: m[5],
	}, nil
}

// String reassembles the exact wire form of the timestamp.
func (s providerStamp) String() string {
	return fmt.Sprintf("%sT%02d:%02d:%02d%s", s.Date, s.Hour, s.Minute, s.Second, s.Offset)
}

// addClockMinutes advances a wall-clock hour/minute by delta minutes on a
// 24-hour clock. The date is deliberately untouched: a slot whose end wraps
// past midnight keeps its original date (see the late-night rollover note in
// DESIGN.md).
func addClockMinutes(hour, minute, delta int) (int, int) {
	total := hour*60 + minute + delta
	total = ((total % 1440) + 1440) % 1440
	return total / 60, total % 60
}

// providerEndTimestamp derives the appointment-end timestamp from a provider
// start timestamp by adding minutes to the provider-local clock, reusing the
// start's own offset substring. The offset is never recomputed from the
// display timezone, so a DST boundary between the two zones cannot shift the
// booked hour.
func providerEndTimestamp(raw string, minutes int) (string, error) {
	stamp, err := parseProviderStamp(raw)
	if err != nil {
		return "", err
	}
	stamp.Hour, stamp.Minute = addClockMinutes(stamp.Hour, stamp.Minute, minutes)
	return stamp.String(), nil
}

// NewDisplaySlot converts a provider slot timestamp into a TimeSlot rendered
// in the viewer's timezone. The provider timestamp is parsed as an absolute
// instant and only re-rendered under displayTZ; no offset arithmetic is
// applied by hand.
func NewDisplaySlot(providerTimestamp, displayTZ string, minutes int) (TimeSlot, error) {
	if _, err := parseProviderStamp(providerTimestamp); err != nil {
		return TimeSlot{}, err
	}
	instant, err := time.Parse("2006-01-02T15:04:05-07:00", providerTimestamp)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("%w: %q", ErrMalformedProviderTimestamp, providerTimestamp)
	}

	local := instant.In(timezone.Location(displayTZ))
	startHour, startMinute, startSecond := local.Clock()
	endHour, endMinute := addClockMinutes(startHour, startMinute, minutes)

	return TimeSlot{
		DisplayStart:      fmt.Sprintf("%02d:%02d:%02d", startHour, startMinute, startSecond),
		DisplayEnd:        fmt.Sprintf("%02d:%02d:%02d", endHour, endMinute, startSecond),
		ProviderTimestamp: providerTimestamp,
		Available:         true,
	}, nil
}
