package media

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medassist-ai/intake-platform/internal/tenancy"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// Handler accepts media uploads from the intake widgets.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates the media upload handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger.Component("media-handler")}
}

// Routes mounts the media endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/attachments", h.uploadKind(KindAttachment))
	r.Post("/voice-notes", h.uploadKind(KindVoiceNote))
	return r
}

// uploadKind handles a multipart upload with a single "file" part.
func (h *Handler) uploadKind(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.store.Enabled() {
			jsonError(w, "media storage not configured", http.StatusServiceUnavailable)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "multipart field 'file' is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		orgID := tenancy.OrgIDOrDefault(r.Context())
		obj, err := h.store.Put(r.Context(), kind, orgID, header.Filename, contentType, file)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			h.logger.Error("media upload failed", "kind", kind, "error", err)
			jsonError(w, "upload failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, obj)
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
