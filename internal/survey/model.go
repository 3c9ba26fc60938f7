// Package survey implements the onboarding survey: the questionnaire a new
// practice completes before its bot goes live. Answers may be typed or
// recorded as voice notes; voice notes are transcribed before the response
// is relayed to the automation system.
package survey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Answer is one answered question.
type Answer struct {
	QuestionID   string `json:"question_id"`
	Text         string `json:"text,omitempty"`
	VoiceNoteKey string `json:"voice_note_key,omitempty"` // media object key
	Transcript   string `json:"transcript,omitempty"`
}

// Response is a completed onboarding survey.
type Response struct {
	ID          uuid.UUID `json:"id"`
	OrgID       string    `json:"org_id"`
	ContactID   string    `json:"contact_id,omitempty"`
	ClientName  string    `json:"client_name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Answers     []Answer  `json:"answers"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmitRequest is the intake payload for a completed survey.
type SubmitRequest struct {
	ClientName string   `json:"client_name"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Answers    []Answer `json:"answers"`
}

const maxAnswers = 50

// Validate normalizes and checks the submission in place.
func (r *SubmitRequest) Validate() error {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)

	if r.ClientName == "" {
		return fmt.Errorf("survey: client_name is required")
	}
	if r.Email == "" && r.Phone == "" {
		return fmt.Errorf("survey: an email or phone is required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return fmt.Errorf("survey: invalid email format")
	}
	if len(r.Answers) == 0 {
		return fmt.Errorf("survey: at least one answer is required")
	}
	if len(r.Answers) > maxAnswers {
		return fmt.Errorf("survey: at most %d answers", maxAnswers)
	}

	seen := make(map[string]bool, len(r.Answers))
	for i := range r.Answers {
		a := &r.Answers[i]
		a.QuestionID = strings.TrimSpace(a.QuestionID)
		a.Text = strings.TrimSpace(a.Text)
		a.VoiceNoteKey = strings.TrimSpace(a.VoiceNoteKey)
		a.Transcript = "" // server-side only

		if a.QuestionID == "" {
			return fmt.Errorf("survey: answer %d missing question_id", i)
		}
		if seen[a.QuestionID] {
			return fmt.Errorf("survey: duplicate answer for question %s", a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.Text == "" && a.VoiceNoteKey == "" {
			return fmt.Errorf("survey: answer for %s needs text or a voice note", a.QuestionID)
		}
	}
	return nil
}
