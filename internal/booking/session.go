package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medassist-ai/intake-platform/internal/observability/metrics"
	"github.com/medassist-ai/intake-platform/internal/timezone"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// State is the booking session's position in its lifecycle.
type State string

const (
	StateNoSelection     State = "no_selection"
	StateDateSelected    State = "date_selected"
	StateSlotSelected    State = "slot_selected"
	StateBookingInFlight State = "booking_in_flight"
	StateBooked          State = "booked"
)

const dateLayout = "2006-01-02"

// CalendarProvider is the slice of the calendar/CRM client the session uses.
// FreeSlots returns provider-native fixed-offset timestamps keyed by
// provider-calendar date; the session performs its own timezone conversion
// and does not trust any provider-side rendering.
type CalendarProvider interface {
	FreeSlots(ctx context.Context, start, end time.Time, displayTZ string) (map[string][]string, error)
	CreateAppointment(ctx context.Context, req *BookingRequest) (*Appointment, error)
}

// EventRecorder queues an event for delivery to the automation system.
type EventRecorder interface {
	Record(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error)
}

// Appointment is the provider's record of a created appointment.
type Appointment struct {
	ID        string `json:"id"`
	ContactID string `json:"contact_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

// SessionConfig carries the per-deployment knobs for booking sessions.
type SessionConfig struct {
	Provider           CalendarProvider
	Logger             *logging.Logger
	Metrics            *metrics.BookingMetrics
	Events             EventRecorder
	ProviderTimezone   string
	DefaultDisplayTZ   string
	AppointmentMinutes int
	RangeDays          int
	DefaultTitle       string
	Now                func() time.Time
}

// Session drives one booking widget instance: it owns the viewer timezone,
// the availability cache, and the selection state machine. Access from
// interleaving requests is serialized by the session mutex; the mutex is
// released across provider calls so a timezone change can land while a fetch
// is in flight, and the discard-on-mismatch guard (tzEpoch) decides whether
// the fetch result may be committed.
type Session struct {
	mu sync.Mutex

	id       string
	orgID    string
	provider CalendarProvider
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
	events   EventRecorder
	now      func() time.Time

	providerTZ   string
	minutes      int
	rangeDays    int
	defaultTitle string

	displayTZ string
	tzEpoch   uint64

	month        time.Time // first day of the visible month, provider zone
	selectedDate string
	selectedSlot *TimeSlot
	state        State
	cache        *AvailabilityCache
	appointment  *Appointment
	lastError    string
	warning      string
	lastAccess   time.Time
}

func newSession(id, orgID string, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	minutes := cfg.AppointmentMinutes
	if minutes <= 0 {
		minutes = DefaultAppointmentMinutes
	}
	rangeDays := cfg.RangeDays
	if rangeDays <= 0 {
		rangeDays = 28
	}
	providerTZ := timezone.Resolve(cfg.ProviderTimezone)

	providerNow := now().In(timezone.Location(providerTZ))
	month := time.Date(providerNow.Year(), providerNow.Month(), 1, 0, 0, 0, 0, providerNow.Location())

	return &Session{
		id:           id,
		orgID:        orgID,
		provider:     cfg.Provider,
		logger:       logger.Component("booking-session"),
		metrics:      cfg.Metrics,
		events:       cfg.Events,
		now:          now,
		providerTZ:   providerTZ,
		minutes:      minutes,
		rangeDays:    rangeDays,
		defaultTitle: cfg.DefaultTitle,
		displayTZ:    timezone.Resolve(cfg.DefaultDisplayTZ),
		month:        month,
		state:        StateNoSelection,
		cache:        NewAvailabilityCache(),
		lastAccess:   now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SelectTimezone switches the viewer's display timezone. An unresolvable
// name falls back to the current zone rather than failing. Every change
// bumps the timezone epoch, clears the cache, and refetches availability;
// a fetch already in flight for the old zone is discarded on return.
func (s *Session) SelectTimezone(ctx context.Context, tz string) error {
	s.mu.Lock()
	if s.state == StateBooked || s.state == StateBookingInFlight {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.touchLocked()

	resolved := timezone.Resolve(tz, s.displayTZ)
	if _, err := timezone.OffsetMinutes(tz, s.now()); err != nil {
		s.logger.Warn("invalid viewer timezone, using fallback",
			"requested", tz, "fallback", resolved, "session_id", s.id)
	}

	s.displayTZ = resolved
	s.tzEpoch++
	s.cache.Invalidate()
	s.selectedDate = ""
	s.selectedSlot = nil
	s.state = StateNoSelection
	epoch := s.tzEpoch
	s.mu.Unlock()

	return s.refreshAvailability(ctx, epoch, resolved)
}

// refreshAvailability performs the bulk range fetch: today through +rangeDays,
// computed in the provider's timezone, since availability follows the
// provider's business calendar day boundaries. The result only lands in the
// cache when the timezone epoch captured at fetch start still matches.
func (s *Session) refreshAvailability(ctx context.Context, epoch uint64, displayTZ string) error {
	providerLoc := timezone.Location(s.providerTZ)
	nowProvider := s.now().In(providerLoc)
	start := time.Date(nowProvider.Year(), nowProvider.Month(), nowProvider.Day(), 0, 0, 0, 0, providerLoc)
	end := start.AddDate(0, 0, s.rangeDays)

	began := time.Now()
	raw, err := s.provider.FreeSlots(ctx, start, end, displayTZ)
	elapsed := time.Since(began).Seconds()
	if err != nil {
		s.metrics.ObserveFetch("range", "error", elapsed)
		s.mu.Lock()
		s.warning = "availability is temporarily unavailable"
		s.mu.Unlock()
		s.logger.Warn("availability range fetch failed",
			"timezone", displayTZ, "start", start.Format(dateLayout), "error", err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	converted := s.convertFetched(raw, displayTZ)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.tzEpoch {
		s.metrics.ObserveStaleDiscard()
		s.logger.Info("discarding stale availability fetch",
			"fetched_timezone", displayTZ, "current_timezone", s.displayTZ, "session_id", s.id)
		return nil
	}
	s.cache.ReplaceAll(converted)
	s.warning = ""
	s.metrics.ObserveFetch("range", "ok", elapsed)
	s.autoSelectLocked()
	return nil
}

// convertFetched translates provider timestamps into display slots, dropping
// any timestamp that fails the strict provider pattern.
func (s *Session) convertFetched(raw map[string][]string, displayTZ string) map[string][]TimeSlot {
	converted := make(map[string][]TimeSlot, len(raw))
	for date, stamps := range raw {
		slots := make([]TimeSlot, 0, len(stamps))
		for _, stamp := range stamps {
			slot, err := NewDisplaySlot(stamp, displayTZ, s.minutes)
			if err != nil {
				s.logger.Warn("dropping malformed provider slot",
					"date", date, "timestamp", stamp, "error", err)
				continue
			}
			slots = append(slots, slot)
		}
		converted[date] = slots
	}
	return converted
}

// NavigateMonth moves the visible month. The target is always the 1st of
// that month, so navigating from the 31st can never skip a month. The first
// cached date in the new month with slots is auto-selected; with none, the
// selection is cleared.
func (s *Session) NavigateMonth(direction string) error {
	var delta int
	switch direction {
	case "prev":
		delta = -1
	case "next":
		delta = 1
	default:
		return fmt.Errorf("booking: unknown navigation direction %q", direction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateBooked || s.state == StateBookingInFlight {
		return ErrInvalidTransition
	}
	s.touchLocked()

	s.month = time.Date(s.month.Year(), time.Month(int(s.month.Month())+delta), 1, 0, 0, 0, 0, s.month.Location())
	s.selectedSlot = nil
	s.autoSelectLocked()
	return nil
}

// autoSelectLocked picks the first selectable date in the visible month, or
// clears the selection when the month has none. Callers hold the mutex.
func (s *Session) autoSelectLocked() {
	if s.state == StateBooked || s.state == StateBookingInFlight {
		return
	}
	prefix := s.month.Format("2006-01")
	if date, ok := s.cache.FirstAvailableDate(prefix); ok && !s.isPastDate(date) {
		s.selectedDate = date
		s.selectedSlot = nil
		s.state = StateDateSelected
		return
	}
	s.selectedDate = ""
	s.selectedSlot = nil
	s.state = StateNoSelection
}

// isPastDate reports whether date is strictly before today in the provider's
// calendar.
func (s *Session) isPastDate(date string) bool {
	providerLoc := timezone.Location(s.providerTZ)
	day, err := time.ParseInLocation(dateLayout, date, providerLoc)
	if err != nil {
		return true
	}
	nowProvider := s.now().In(providerLoc)
	today := time.Date(nowProvider.Year(), nowProvider.Month(), nowProvider.Day(), 0, 0, 0, 0, providerLoc)
	return day.Before(today)
}

// SelectDate selects a provider-calendar date. A cache miss triggers a
// targeted single-date fetch under the same discard-on-mismatch guard as the
// range fetch. Past dates and dates without available slots are rejected.
func (s *Session) SelectDate(ctx context.Context, date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrDateNotSelectable, date)
	}
	if s.isPastDate(date) {
		return fmt.Errorf("%w: %s is in the past", ErrDateNotSelectable, date)
	}

	s.mu.Lock()
	if s.state == StateBooked || s.state == StateBookingInFlight {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.touchLocked()
	s.selectedSlot = nil

	if _, ok := s.cache.Get(date); !ok {
		epoch := s.tzEpoch
		displayTZ := s.displayTZ
		s.mu.Unlock()
		if err := s.fetchSingleDate(ctx, date, epoch, displayTZ); err != nil {
			return err
		}
		s.mu.Lock()
		// A confirm may have landed while the fetch ran unlocked; a booked
		// session must not be dragged back to date selection.
		if s.state == StateBooked || s.state == StateBookingInFlight {
			s.mu.Unlock()
			return ErrInvalidTransition
		}
	}
	defer s.mu.Unlock()

	if !s.cache.HasSlots(date) {
		if s.state == StateSlotSelected {
			s.state = StateDateSelected
		}
		return fmt.Errorf("%w: no availability on %s", ErrDateNotSelectable, date)
	}
	s.selectedDate = date
	s.state = StateDateSelected
	return nil
}

// fetchSingleDate fetches one provider-calendar day and commits it only if
// the timezone epoch is unchanged.
func (s *Session) fetchSingleDate(ctx context.Context, date string, epoch uint64, displayTZ string) error {
	providerLoc := timezone.Location(s.providerTZ)
	day, err := time.ParseInLocation(dateLayout, date, providerLoc)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrDateNotSelectable, date)
	}

	began := time.Now()
	raw, err := s.provider.FreeSlots(ctx, day, day.AddDate(0, 0, 1), displayTZ)
	elapsed := time.Since(began).Seconds()
	if err != nil {
		s.metrics.ObserveFetch("date", "error", elapsed)
		s.logger.Warn("single-date fetch failed", "date", date, "timezone", displayTZ, "error", err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	converted := s.convertFetched(raw, displayTZ)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.tzEpoch {
		s.metrics.ObserveStaleDiscard()
		s.logger.Info("discarding stale single-date fetch",
			"date", date, "fetched_timezone", displayTZ, "current_timezone", s.displayTZ)
		return nil
	}
	slots, ok := converted[date]
	if !ok {
		slots = nil
	}
	s.cache.SetDate(date, slots)
	s.metrics.ObserveFetch("date", "ok", elapsed)
	return nil
}

// SelectSlot picks a slot on the selected date by its display start time
// ("HH:MM:SS", or "HH:MM" shorthand).
func (s *Session) SelectSlot(displayTime string) error {
	if len(displayTime) == 5 {
		displayTime += ":00"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDateSelected && s.state != StateSlotSelected {
		return ErrInvalidTransition
	}
	s.touchLocked()

	slots, _ := s.cache.Get(s.selectedDate)
	for _, slot := range slots {
		if slot.Available && slot.DisplayStart == displayTime {
			chosen := slot
			s.selectedSlot = &chosen
			s.state = StateSlotSelected
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrSlotNotFound, displayTime, s.selectedDate)
}

// ConfirmBooking reconciles the selected slot into provider-native
// timestamps and creates the appointment. Success is terminal: one booking
// per session. Provider rejection returns the session to slot selection so
// the viewer can retry or pick another time.
func (s *Session) ConfirmBooking(ctx context.Context, contactID string, meta Metadata) (*Appointment, error) {
	s.mu.Lock()
	if s.state != StateSlotSelected {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	s.touchLocked()

	if meta.Title == "" {
		meta.Title = s.defaultTitle
	}
	req, err := BuildBookingRequest(s.selectedSlot, contactID, meta, s.minutes)
	if err != nil {
		// Cache/data integrity problem: the attempt is dead but the session
		// stays in slot selection so the viewer can pick another time.
		s.lastError = err.Error()
		s.mu.Unlock()
		s.logger.Error("booking request reconciliation failed",
			"date", s.selectedDate, "timezone", s.displayTZ, "error", err)
		return nil, err
	}

	s.state = StateBookingInFlight
	date := s.selectedDate
	displayTZ := s.displayTZ
	s.mu.Unlock()

	appt, err := s.provider.CreateAppointment(ctx, req)

	s.mu.Lock()
	if err != nil {
		s.state = StateSlotSelected
		s.lastError = err.Error()
		s.mu.Unlock()
		s.metrics.ObserveBooking("error")
		s.logger.Error("appointment creation failed",
			"date", date, "start_time", req.StartTime, "end_time", req.EndTime,
			"timezone", displayTZ, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBookingRejected, err)
	}

	s.state = StateBooked
	s.appointment = appt
	s.lastError = ""
	s.mu.Unlock()

	s.metrics.ObserveBooking("ok")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID, "start_time", req.StartTime, "timezone", displayTZ)
	s.recordConfirmed(ctx, appt, req, date, displayTZ)
	return appt, nil
}

// bookingConfirmedEvent is the payload relayed to the automation webhook
// after a successful booking. The survey answers collected by the widget
// ride along so downstream workflows see them without another round trip.
type bookingConfirmedEvent struct {
	AppointmentID string          `json:"appointment_id"`
	ContactID     string          `json:"contact_id"`
	Date          string          `json:"date"`
	StartTime     string          `json:"start_time"`
	EndTime       string          `json:"end_time"`
	Timezone      string          `json:"timezone"`
	Title         string          `json:"title,omitempty"`
	Survey        json.RawMessage `json:"survey,omitempty"`
}

// recordConfirmed queues the booking.confirmed event. Best effort: the
// appointment already exists on the provider side, so a recording failure
// is logged rather than surfaced to the viewer.
func (s *Session) recordConfirmed(ctx context.Context, appt *Appointment, req *BookingRequest, date, displayTZ string) {
	if s.events == nil {
		return
	}
	evt := bookingConfirmedEvent{
		AppointmentID: appt.ID,
		ContactID:     req.ContactID,
		Date:          date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Timezone:      displayTZ,
		Title:         req.Title,
		Survey:        req.Survey,
	}
	if _, err := s.events.Record(ctx, s.orgID, "booking.confirmed", evt); err != nil {
		s.logger.Warn("failed to record booking event",
			"appointment_id", appt.ID, "org_id", s.orgID, "error", err)
	}
}

// Snapshot is the session view returned to the widget.
type Snapshot struct {
	SessionID    string          `json:"session_id"`
	State        State           `json:"state"`
	Timezone     string          `json:"timezone"`
	Month        string          `json:"month"` // YYYY-MM
	SelectedDate string          `json:"selected_date,omitempty"`
	SelectedSlot *TimeSlot       `json:"selected_slot,omitempty"`
	Slots        []TimeSlot      `json:"slots,omitempty"`
	Availability map[string]bool `json:"availability"`
	Appointment  *Appointment    `json:"appointment,omitempty"`
	Warning      string          `json:"warning,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	snap := Snapshot{
		SessionID:    s.id,
		State:        s.state,
		Timezone:     s.displayTZ,
		Month:        s.month.Format("2006-01"),
		SelectedDate: s.selectedDate,
		Availability: make(map[string]bool, s.cache.Len()),
		Appointment:  s.appointment,
		Warning:      s.warning,
		LastError:    s.lastError,
	}
	for date := range s.cache.byDate {
		snap.Availability[date] = s.cache.HasSlots(date)
	}
	if s.selectedDate != "" {
		if slots, ok := s.cache.Get(s.selectedDate); ok {
			snap.Slots = append([]TimeSlot(nil), slots...)
		}
	}
	if s.selectedSlot != nil {
		chosen := *s.selectedSlot
		snap.SelectedSlot = &chosen
	}
	return snap
}

func (s *Session) touchLocked() {
	s.lastAccess = s.now()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}
