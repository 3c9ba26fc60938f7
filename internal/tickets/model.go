// Package tickets implements support-ticket intake: validation, persistence,
// SLA deadlines, and handoff to the CRM and workflow automation.
package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority orders tickets for triage and drives the SLA deadline.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is a ticket's lifecycle position.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// Categories accepted at intake. Free-form categories are rejected so the
// automation system's routing rules stay exhaustive.
var validCategories = map[string]bool{
	"billing":     true,
	"scheduling":  true,
	"bot_quality": true,
	"onboarding":  true,
	"technical":   true,
	"other":       true,
}

// Ticket is a persisted support ticket.
type Ticket struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       string     `json:"org_id"`
	ContactID   string     `json:"contact_id,omitempty"`
	Category    string     `json:"category"`
	ClientName  string     `json:"client_name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Attachments []string   `json:"attachments,omitempty"` // media object keys
	SLADueAt    time.Time  `json:"sla_due_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SubmitRequest is the intake payload for a new ticket.
type SubmitRequest struct {
	Category    string   `json:"category"`
	ClientName  string   `json:"client_name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

const (
	maxSubjectLen     = 200
	maxDescriptionLen = 10000
	maxAttachments    = 5
)

// Validate normalizes and checks the intake payload in place.
func (r *SubmitRequest) Validate() error {
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Description = strings.TrimSpace(r.Description)

	if !validCategories[r.Category] {
		return fmt.Errorf("tickets: unknown category %q", r.Category)
	}
	if r.ClientName == "" {
		return fmt.Errorf("tickets: client_name is required")
	}
	if r.Email == "" && r.Phone == "" {
		return fmt.Errorf("tickets: an email or phone is required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return fmt.Errorf("tickets: invalid email format")
	}
	if r.Subject == "" {
		return fmt.Errorf("tickets: subject is required")
	}
	if len(r.Subject) > maxSubjectLen {
		return fmt.Errorf("tickets: subject exceeds %d characters", maxSubjectLen)
	}
	if r.Description == "" {
		return fmt.Errorf("tickets: description is required")
	}
	if len(r.Description) > maxDescriptionLen {
		return fmt.Errorf("tickets: description exceeds %d characters", maxDescriptionLen)
	}
	if len(r.Attachments) > maxAttachments {
		return fmt.Errorf("tickets: at most %d attachments", maxAttachments)
	}

	switch r.Priority {
	case "":
		r.Priority = PriorityNormal
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
	default:
		return fmt.Errorf("tickets: unknown priority %q", r.Priority)
	}
	return nil
}

// validTransitions maps each status to the statuses it may move to.
var validTransitions = map[Status][]Status{
	StatusOpen:     {StatusPending, StatusResolved, StatusClosed},
	StatusPending:  {StatusOpen, StatusResolved, StatusClosed},
	StatusResolved: {StatusClosed, StatusOpen},
	StatusClosed:   {},
}

// CanTransition reports whether a ticket may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
