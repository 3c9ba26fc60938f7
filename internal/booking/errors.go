package booking

import "errors"

var (
	// ErrMissingProviderTimestamp means a selected slot has no authoritative
	// provider timestamp. A booking request is never synthesized from display
	// time, so the attempt is fatal.
	ErrMissingProviderTimestamp = errors.New("booking: slot is missing its provider timestamp")

	// ErrMalformedProviderTimestamp means the stored provider timestamp does
	// not match the exact fixed-offset pattern the provider emits.
	ErrMalformedProviderTimestamp = errors.New("booking: malformed provider timestamp")

	// ErrProviderUnavailable wraps transport failures against the calendar
	// provider. Range-fetch callers leave prior cache state intact.
	ErrProviderUnavailable = errors.New("booking: calendar provider unavailable")

	// ErrBookingRejected means the provider declined the appointment (for
	// example the slot was taken). The session returns to slot selection.
	ErrBookingRejected = errors.New("booking: provider rejected the appointment")

	// ErrDateNotSelectable means the requested date is in the past or has no
	// available slots.
	ErrDateNotSelectable = errors.New("booking: date is not selectable")

	// ErrSlotNotFound means the requested display time does not match an
	// available slot on the selected date.
	ErrSlotNotFound = errors.New("booking: no available slot at that time")

	// ErrInvalidTransition means the requested operation is not legal in the
	// session's current state.
	ErrInvalidTransition = errors.New("booking: operation not allowed in current state")

	// ErrSessionNotFound means the session id is unknown or expired.
	ErrSessionNotFound = errors.New("booking: session not found")
)
