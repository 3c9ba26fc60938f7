package tickets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medassist-ai/intake-platform/internal/tenancy"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// Handler exposes ticket intake over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the ticket HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger.Component("ticket-handler")}
}

// Routes mounts the ticket endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Get("/", h.List)
	r.Get("/{ticketID}", h.Get)
	r.Post("/{ticketID}/status", h.UpdateStatus)
	return r
}

// Submit creates a ticket.
// POST /api/tickets
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	orgID := tenancy.OrgIDOrDefault(r.Context())
	t, err := h.service.Submit(r.Context(), orgID, req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "tickets: ") {
			jsonError(w, strings.TrimPrefix(err.Error(), "tickets: "), http.StatusBadRequest)
			return
		}
		h.logger.Error("ticket submission failed", "org_id", orgID, "error", err)
		jsonError(w, "could not create ticket", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Get returns one ticket.
// GET /api/tickets/{ticketID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "ticketID"))
	if err != nil {
		jsonError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	t, err := h.service.Get(r.Context(), tenancy.OrgIDOrDefault(r.Context()), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			jsonError(w, "ticket not found", http.StatusNotFound)
			return
		}
		h.logger.Error("ticket fetch failed", "ticket_id", id, "error", err)
		jsonError(w, "could not fetch ticket", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// List returns the org's tickets, newest first.
// GET /api/tickets?status=open&limit=50
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	out, err := h.service.List(r.Context(), tenancy.OrgIDOrDefault(r.Context()), status, limit)
	if err != nil {
		h.logger.Error("ticket list failed", "error", err)
		jsonError(w, "could not list tickets", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []Ticket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": out})
}

type statusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus transitions a ticket's lifecycle status.
// POST /api/tickets/{ticketID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "ticketID"))
	if err != nil {
		jsonError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case StatusOpen, StatusPending, StatusResolved, StatusClosed:
	default:
		jsonError(w, "unknown status", http.StatusBadRequest)
		return
	}

	t, err := h.service.Transition(r.Context(), tenancy.OrgIDOrDefault(r.Context()), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			jsonError(w, "ticket not found", http.StatusNotFound)
		case strings.Contains(err.Error(), "cannot move"):
			jsonError(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("status update failed", "ticket_id", id, "error", err)
			jsonError(w, "could not update status", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
