package survey

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medassist-ai/intake-platform/internal/highlevel"
	"github.com/medassist-ai/intake-platform/internal/media"
	"github.com/medassist-ai/intake-platform/internal/observability/metrics"
	"github.com/medassist-ai/intake-platform/internal/transcription"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// ContactDirectory is the slice of the CRM client survey intake needs.
type ContactDirectory interface {
	UpsertContact(ctx context.Context, contact highlevel.Contact) (*highlevel.Contact, error)
	AddContactTag(ctx context.Context, contactID string, tags ...string) error
}

// EventRecorder queues an event for delivery to the automation system.
type EventRecorder interface {
	Record(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error)
}

// Service orchestrates survey intake.
type Service struct {
	repo        *Repository
	mediaStore  *media.Store
	transcriber transcription.Transcriber
	directory   ContactDirectory
	events      EventRecorder
	language    string
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
	now         func() time.Time
}

// NewService creates the survey service. mediaStore, transcriber, directory,
// and events are optional; nil values skip the corresponding step.
func NewService(repo *Repository, mediaStore *media.Store, transcriber transcription.Transcriber, directory ContactDirectory, events EventRecorder, language string, m *metrics.IntakeMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if language == "" {
		language = "en-US"
	}
	return &Service{
		repo:        repo,
		mediaStore:  mediaStore,
		transcriber: transcriber,
		directory:   directory,
		events:      events,
		language:    language,
		metrics:     m,
		logger:      logger.Component("survey"),
		now:         time.Now,
	}
}

// Submit validates and persists a survey response. Voice-note answers are
// transcribed first so the relayed payload carries text; a transcription
// failure keeps the voice-note reference and moves on.
func (s *Service) Submit(ctx context.Context, orgID string, req SubmitRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		s.metrics.ObserveSurvey("invalid")
		return nil, err
	}

	s.transcribeVoiceNotes(ctx, req.Answers)

	now := s.now().UTC()
	resp := &Response{
		ID:          uuid.New(),
		OrgID:       orgID,
		ClientName:  req.ClientName,
		Email:       req.Email,
		Phone:       req.Phone,
		Answers:     req.Answers,
		CompletedAt: now,
		CreatedAt:   now,
	}

	if s.directory != nil {
		contact, err := s.directory.UpsertContact(ctx, highlevel.Contact{
			Name:  req.ClientName,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			s.logger.Warn("CRM contact upsert failed, survey continues unlinked", "error", err)
		} else {
			resp.ContactID = contact.ID
			if err := s.directory.AddContactTag(ctx, contact.ID, "survey-completed"); err != nil {
				s.logger.Warn("CRM tagging failed", "error", err, "contact_id", contact.ID)
			}
		}
	}

	if err := s.repo.Insert(ctx, resp); err != nil {
		s.metrics.ObserveSurvey("error")
		return nil, err
	}
	s.metrics.ObserveSurvey("ok")

	if s.events != nil {
		if _, err := s.events.Record(ctx, orgID, "survey.completed", resp); err != nil {
			s.logger.Error("failed to queue survey event", "error", err, "survey_id", resp.ID)
		}
	}

	s.logger.Info("survey submitted",
		"survey_id", resp.ID,
		"org_id", orgID,
		"answers", len(resp.Answers),
	)
	return resp, nil
}

// transcribeVoiceNotes fills in Transcript for answers recorded as audio.
func (s *Service) transcribeVoiceNotes(ctx context.Context, answers []Answer) {
	if s.transcriber == nil || s.mediaStore == nil || !s.mediaStore.Enabled() {
		return
	}
	for i := range answers {
		a := &answers[i]
		if a.VoiceNoteKey == "" {
			continue
		}
		audio, _, err := s.mediaStore.ReadAll(ctx, a.VoiceNoteKey)
		if err != nil {
			s.logger.Warn("voice note fetch failed", "error", err, "key", a.VoiceNoteKey)
			continue
		}
		transcript, err := s.transcriber.Transcribe(ctx, audio, s.language)
		if err != nil {
			s.logger.Warn("voice note transcription failed", "error", err, "key", a.VoiceNoteKey)
			continue
		}
		a.Transcript = transcript
	}
}

// Get fetches one survey response.
func (s *Service) Get(ctx context.Context, orgID string, id uuid.UUID) (*Response, error) {
	return s.repo.Get(ctx, orgID, id)
}
