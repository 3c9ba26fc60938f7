package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medassist-ai/intake-platform/internal/tenancy"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// Handler exposes the booking widget's REST surface.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

// NewHandler creates the booking HTTP handler.
func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger.Component("booking-handler")}
}

// Routes mounts the booking endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/timezone", h.SelectTimezone)
		r.Post("/navigate", h.Navigate)
		r.Post("/date", h.SelectDate)
		r.Post("/slot", h.SelectSlot)
		r.Post("/confirm", h.Confirm)
	})
	return r
}

// CreateSession starts a booking session and returns its initial view.
// POST /api/booking/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	orgID := tenancy.OrgIDOrDefault(r.Context())
	s, err := h.manager.Create(r.Context(), orgID)
	if err != nil {
		h.logger.Error("session creation failed", "org_id", orgID, "error", err)
		jsonError(w, "could not create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession returns the current session view.
// GET /api/booking/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type timezoneRequest struct {
	Timezone string `json:"timezone"`
}

// SelectTimezone switches the viewer timezone and refetches availability.
// POST /api/booking/sessions/{sessionID}/timezone
func (h *Handler) SelectTimezone(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req timezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		jsonError(w, "timezone is required", http.StatusBadRequest)
		return
	}
	if err := s.SelectTimezone(r.Context(), req.Timezone); err != nil {
		h.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type navigateRequest struct {
	Direction string `json:"direction"` // "prev" or "next"
}

// Navigate moves the visible calendar month.
// POST /api/booking/sessions/{sessionID}/navigate
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.NavigateMonth(req.Direction); err != nil {
		h.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type dateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, provider calendar
}

// SelectDate selects a calendar date.
// POST /api/booking/sessions/{sessionID}/date
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req dateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.SelectDate(r.Context(), req.Date); err != nil {
		h.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type slotRequest struct {
	StartTime string `json:"start_time"` // HH:MM:SS in the viewer's timezone
}

// SelectSlot picks a time slot on the selected date.
// POST /api/booking/sessions/{sessionID}/slot
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.StartTime == "" {
		jsonError(w, "start_time is required", http.StatusBadRequest)
		return
	}
	if err := s.SelectSlot(req.StartTime); err != nil {
		h.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type confirmRequest struct {
	ContactID   string          `json:"contact_id"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Survey      json.RawMessage `json:"survey,omitempty"`
}

// Confirm books the selected slot with the calendar provider.
// POST /api/booking/sessions/{sessionID}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ContactID == "" {
		jsonError(w, "contact_id is required", http.StatusBadRequest)
		return
	}
	appt, err := s.ConfirmBooking(r.Context(), req.ContactID, Metadata{
		Title:       req.Title,
		Description: req.Description,
		Survey:      req.Survey,
	})
	if err != nil {
		h.writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment": appt,
		"session":     s.Snapshot(),
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "sessionID")
	s, err := h.manager.Get(id)
	if err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *Handler) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrDateNotSelectable), errors.Is(err, ErrSlotNotFound),
		errors.Is(err, ErrMissingProviderTimestamp), errors.Is(err, ErrMalformedProviderTimestamp):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrProviderUnavailable):
		jsonError(w, "calendar provider unavailable", http.StatusBadGateway)
	case errors.Is(err, ErrBookingRejected):
		jsonError(w, "booking was rejected, pick another time", http.StatusConflict)
	default:
		jsonError(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
