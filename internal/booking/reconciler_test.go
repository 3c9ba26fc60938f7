package booking

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildBookingRequest(t *testing.T) {
	slot := &TimeSlot{
		DisplayStart:      "17:00:00",
		DisplayEnd:        "17:45:00",
		ProviderTimestamp: "2025-11-03T16:00:00-06:00",
		Available:         true,
	}

	req, err := BuildBookingRequest(slot, "contact-42", Metadata{
		Title:       "Onboarding Call",
		Description: "Kickoff with the practice team",
	}, 45)
	if err != nil {
		t.Fatalf("BuildBookingRequest: %v", err)
	}

	if req.StartTime != "2025-11-03T16:00:00-06:00" {
		t.Errorf("StartTime = %s", req.StartTime)
	}
	if req.EndTime != "2025-11-03T16:45:00-06:00" {
		t.Errorf("EndTime = %s", req.EndTime)
	}
	if req.ContactID != "contact-42" || req.Title != "Onboarding Call" {
		t.Errorf("metadata not carried: %+v", req)
	}
}

// Round-trip property: the end timestamp must reproduce the exact offset
// substring of the start timestamp.
func TestBuildBookingRequestOffsetRoundTrip(t *testing.T) {
	stamps := []string{
		"2025-11-03T16:00:00-06:00",
		"2025-03-09T01:30:00-06:00", // just before a spring-forward boundary
		"2025-07-15T09:00:00+02:00",
		"2025-01-05T10:00:00+05:30",
	}
	for _, stamp := range stamps {
		slot := &TimeSlot{ProviderTimestamp: stamp, Available: true}
		req, err := BuildBookingRequest(slot, "c-1", Metadata{}, 45)
		if err != nil {
			t.Fatalf("BuildBookingRequest(%s): %v", stamp, err)
		}
		wantOffset := stamp[len(stamp)-6:]
		if !strings.HasSuffix(req.EndTime, wantOffset) {
			t.Errorf("end %s does not carry start offset %s", req.EndTime, wantOffset)
		}
		if req.StartTime != stamp {
			t.Errorf("start %s mutated from %s", req.StartTime, stamp)
		}
	}
}

func TestBuildBookingRequestMissingTimestamp(t *testing.T) {
	if _, err := BuildBookingRequest(nil, "c-1", Metadata{}, 45); !errors.Is(err, ErrMissingProviderTimestamp) {
		t.Errorf("nil slot: expected ErrMissingProviderTimestamp, got %v", err)
	}
	slot := &TimeSlot{DisplayStart: "17:00:00", Available: true}
	if _, err := BuildBookingRequest(slot, "c-1", Metadata{}, 45); !errors.Is(err, ErrMissingProviderTimestamp) {
		t.Errorf("empty timestamp: expected ErrMissingProviderTimestamp, got %v", err)
	}
}

func TestBuildBookingRequestMalformedTimestamp(t *testing.T) {
	malformed := []string{
		"2025-11-03T16:00:00Z",
		"2025-11-03T16:00:00",
		"2025-11-03T16:00:00-0600",
		"11/03/2025 4:00 PM",
	}
	for _, raw := range malformed {
		slot := &TimeSlot{ProviderTimestamp: raw, Available: true}
		if _, err := BuildBookingRequest(slot, "c-1", Metadata{}, 45); !errors.Is(err, ErrMalformedProviderTimestamp) {
			t.Errorf("%q: expected ErrMalformedProviderTimestamp, got %v", raw, err)
		}
	}
}

func TestBuildBookingRequestDefaultsDuration(t *testing.T) {
	slot := &TimeSlot{ProviderTimestamp: "2025-11-03T16:00:00-06:00", Available: true}
	req, err := BuildBookingRequest(slot, "c-1", Metadata{}, 0)
	if err != nil {
		t.Fatalf("BuildBookingRequest: %v", err)
	}
	if req.EndTime != "2025-11-03T16:45:00-06:00" {
		t.Errorf("expected 45-minute default, got end %s", req.EndTime)
	}
}
