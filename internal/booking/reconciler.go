package booking

import (
	"encoding/json"
	"fmt"
)

// BookingRequest is the exact payload the provider's appointment-creation
// endpoint requires. StartTime and EndTime are fixed-offset ISO strings in
// the provider's business timezone; they are recovered from the slot's
// stored provider timestamp, never rebuilt from display time.
type BookingRequest struct {
	ContactID   string          `json:"contact_id"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Survey      json.RawMessage `json:"survey,omitempty"`
}

// Metadata carries the caller-supplied appointment fields and the optional
// survey payload forwarded downstream after booking.
type Metadata struct {
	Title       string
	Description string
	Survey      json.RawMessage
}

// BuildBookingRequest reconciles a selected display-timezone slot back into
// the provider's native timestamps. The start is the slot's stored provider
// timestamp verbatim; the end adds the appointment length to the
// provider-local clock and reuses the start's offset substring, since an
// appointment is assumed not to cross a DST transition within its duration.
func BuildBookingRequest(slot *TimeSlot, contactID string, meta Metadata, minutes int) (*BookingRequest, error) {
	if slot == nil || slot.ProviderTimestamp == "" {
		return nil, ErrMissingProviderTimestamp
	}
	if contactID == "" {
		return nil, fmt.Errorf("booking: contact id is required")
	}
	if minutes <= 0 {
		minutes = DefaultAppointmentMinutes
	}

	start, err := parseProviderStamp(slot.ProviderTimestamp)
	if err != nil {
		return nil, err
	}

	end := start
	end.Hour, end.Minute = addClockMinutes(start.Hour, start.Minute, minutes)

	return &BookingRequest{
		ContactID:   contactID,
		StartTime:   start.String(),
		EndTime:     end.String(),
		Title:       meta.Title,
		Description: meta.Description,
		Survey:      meta.Survey,
	}, nil
}
