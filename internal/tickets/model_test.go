package tickets

import (
	"strings"
	"testing"
)

func validSubmit() SubmitRequest {
	return SubmitRequest{
		Category:    "billing",
		ClientName:  "Dana Wells",
		Email:       "dana@example.com",
		Subject:     "Invoice discrepancy",
		Description: "The October invoice shows a duplicate seat charge.",
	}
}

func TestSubmitRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SubmitRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *SubmitRequest) {}},
		{name: "normalizes case and whitespace", mutate: func(r *SubmitRequest) {
			r.Category = "  Billing "
			r.Email = " DANA@Example.COM "
		}},
		{name: "unknown category", mutate: func(r *SubmitRequest) { r.Category = "gossip" }, wantErr: "unknown category"},
		{name: "missing name", mutate: func(r *SubmitRequest) { r.ClientName = "  " }, wantErr: "client_name"},
		{name: "no contact info", mutate: func(r *SubmitRequest) { r.Email = ""; r.Phone = "" }, wantErr: "email or phone"},
		{name: "phone alone is enough", mutate: func(r *SubmitRequest) { r.Email = ""; r.Phone = "+15125550133" }},
		{name: "bad email", mutate: func(r *SubmitRequest) { r.Email = "not-an-email" }, wantErr: "invalid email"},
		{name: "missing subject", mutate: func(r *SubmitRequest) { r.Subject = "" }, wantErr: "subject is required"},
		{name: "subject too long", mutate: func(r *SubmitRequest) { r.Subject = strings.Repeat("x", 201) }, wantErr: "subject exceeds"},
		{name: "missing description", mutate: func(r *SubmitRequest) { r.Description = "" }, wantErr: "description is required"},
		{name: "too many attachments", mutate: func(r *SubmitRequest) {
			r.Attachments = []string{"a", "b", "c", "d", "e", "f"}
		}, wantErr: "at most 5"},
		{name: "bad priority", mutate: func(r *SubmitRequest) { r.Priority = "whenever" }, wantErr: "unknown priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSubmit()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateDefaultsPriority(t *testing.T) {
	req := validSubmit()
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Priority != PriorityNormal {
		t.Fatalf("expected default priority normal, got %s", req.Priority)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusResolved, true},
		{StatusOpen, StatusPending, true},
		{StatusPending, StatusOpen, true},
		{StatusResolved, StatusClosed, true},
		{StatusResolved, StatusOpen, true},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusClosed, false},
		{StatusOpen, StatusOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
