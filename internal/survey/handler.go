package survey

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medassist-ai/intake-platform/internal/tenancy"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// Handler exposes survey intake over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the survey HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger.Component("survey-handler")}
}

// Routes mounts the survey endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Get("/{surveyID}", h.Get)
	return r
}

// Submit stores a completed onboarding survey.
// POST /api/surveys
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	orgID := tenancy.OrgIDOrDefault(r.Context())
	resp, err := h.service.Submit(r.Context(), orgID, req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "survey: ") {
			jsonError(w, strings.TrimPrefix(err.Error(), "survey: "), http.StatusBadRequest)
			return
		}
		h.logger.Error("survey submission failed", "org_id", orgID, "error", err)
		jsonError(w, "could not store survey", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns one survey response.
// GET /api/surveys/{surveyID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "surveyID"))
	if err != nil {
		jsonError(w, "invalid survey id", http.StatusBadRequest)
		return
	}
	resp, err := h.service.Get(r.Context(), tenancy.OrgIDOrDefault(r.Context()), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			jsonError(w, "survey not found", http.StatusNotFound)
			return
		}
		h.logger.Error("survey fetch failed", "survey_id", id, "error", err)
		jsonError(w, "could not fetch survey", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
