// Package highlevel provides a REST client for the HighLevel CRM and
// calendar API. It serves two roles: calendar provider for the booking
// widget (free-slot queries, appointment creation) and contact store for
// ticket and survey intake.
package highlevel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medassist-ai/intake-platform/internal/booking"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

const (
	defaultBaseURL = "https://rest.gohighlevel.com/v1"
	defaultTimeout = 15 * time.Second
)

// Client is a HighLevel REST API client.
type Client struct {
	baseURL    string
	apiKey     string
	locationID string
	calendarID string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool // When true, CreateAppointment logs but doesn't actually create
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithDryRun enables dry-run mode: CreateAppointment will log the request
// but return a fake success without calling HighLevel's API.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) {
		c.dryRun = dryRun
	}
}

// NewClient creates a new HighLevel API client.
func NewClient(apiKey, locationID, calendarID string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		locationID: locationID,
		calendarID: calendarID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.Component("highlevel"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dateSlots is HighLevel's per-date entry in the free-slots response. The
// response object maps date strings to these entries, plus a traceId key
// that must be skipped when ranging.
type dateSlots struct {
	Slots []string `json:"slots"`
}

// FreeSlots queries the calendar's open slots between start and end. The
// returned map is keyed by calendar date (YYYY-MM-DD in the calendar's own
// timezone); values are fixed-offset ISO timestamps exactly as HighLevel
// returns them. The timezone parameter only affects which zone HighLevel
// renders offsets in, never which slots exist.
func (c *Client) FreeSlots(ctx context.Context, start, end time.Time, tz string) (map[string][]string, error) {
	q := url.Values{}
	q.Set("calendarId", c.calendarID)
	q.Set("startDate", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endDate", strconv.FormatInt(end.UnixMilli(), 10))
	if tz != "" {
		q.Set("timezone", tz)
	}

	var raw map[string]json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/appointments/slots?"+q.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("free slots query failed: %w", err)
	}

	out := make(map[string][]string, len(raw))
	for key, val := range raw {
		if key == "traceId" {
			continue
		}
		var ds dateSlots
		if err := json.Unmarshal(val, &ds); err != nil {
			c.logger.Warn("skipping unparseable slots entry", "date", key, "error", err)
			continue
		}
		out[key] = ds.Slots
	}
	return out, nil
}

type createAppointmentRequest struct {
	CalendarID        string `json:"calendarId"`
	SelectedSlot      string `json:"selectedSlot"`
	EndTime           string `json:"endTime,omitempty"`
	SelectedTimezone  string `json:"selectedTimezone,omitempty"`
	ContactID         string `json:"contactId"`
	Title             string `json:"title,omitempty"`
	AppointmentStatus string `json:"appointmentStatus,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type createAppointmentResponse struct {
	ID                string `json:"id"`
	ContactID         string `json:"contactId"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	AppointmentStatus string `json:"appointmentStatus"`
	Message           string `json:"message,omitempty"`
}

// CreateAppointment books a slot on the calendar. The request's timestamps
// must be the provider-native fixed-offset strings; they are passed through
// verbatim.
func (c *Client) CreateAppointment(ctx context.Context, req *booking.BookingRequest) (*booking.Appointment, error) {
	if c.dryRun {
		c.logger.Info("DRY RUN: would create HighLevel appointment",
			"contact_id", req.ContactID,
			"start_time", req.StartTime,
			"end_time", req.EndTime,
			"title", req.Title,
		)
		return &booking.Appointment{
			ID:        fmt.Sprintf("dry-run-%d", time.Now().UnixMilli()),
			ContactID: req.ContactID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Status:    "confirmed",
		}, nil
	}

	body := createAppointmentRequest{
		CalendarID:        c.calendarID,
		SelectedSlot:      req.StartTime,
		EndTime:           req.EndTime,
		ContactID:         req.ContactID,
		Title:             req.Title,
		AppointmentStatus: "confirmed",
		Notes:             req.Description,
	}

	var resp createAppointmentResponse
	if err := c.doRequest(ctx, http.MethodPost, "/appointments/", body, &resp); err != nil {
		return nil, fmt.Errorf("create appointment failed: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("highlevel rejected appointment: %s", resp.Message)
	}

	appt := &booking.Appointment{
		ID:        resp.ID,
		ContactID: resp.ContactID,
		StartTime: resp.StartTime,
		EndTime:   resp.EndTime,
		Status:    resp.AppointmentStatus,
	}
	if appt.ContactID == "" {
		appt.ContactID = req.ContactID
	}
	if appt.StartTime == "" {
		appt.StartTime = req.StartTime
	}
	if appt.EndTime == "" {
		appt.EndTime = req.EndTime
	}
	if appt.Status == "" {
		appt.Status = "confirmed"
	}
	return appt, nil
}

// Contact is a HighLevel contact record.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// LookupContact finds a contact by email or phone. A miss returns (nil, nil).
func (c *Client) LookupContact(ctx context.Context, email, phone string) (*Contact, error) {
	q := url.Values{}
	if email != "" {
		q.Set("email", email)
	}
	if phone != "" {
		q.Set("phone", phone)
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("lookup needs an email or phone")
	}

	var resp struct {
		Contacts []Contact `json:"contacts"`
	}
	err := c.doRequest(ctx, http.MethodGet, "/contacts/lookup?"+q.Encode(), nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("contact lookup failed: %w", err)
	}
	if len(resp.Contacts) == 0 {
		return nil, nil
	}
	return &resp.Contacts[0], nil
}

// UpsertContact creates or updates a contact keyed by email/phone and
// returns its ID.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) (*Contact, error) {
	body := map[string]string{
		"locationId": c.locationID,
		"name":       contact.Name,
		"email":      contact.Email,
		"phone":      contact.Phone,
	}
	var resp struct {
		Contact Contact `json:"contact"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/contacts/", body, &resp); err != nil {
		return nil, fmt.Errorf("contact upsert failed: %w", err)
	}
	if resp.Contact.ID == "" {
		return nil, fmt.Errorf("highlevel returned contact without id")
	}
	return &resp.Contact, nil
}

// AddContactTag attaches tags to a contact, used to mark intake milestones
// (survey completed, ticket opened) for downstream automations.
func (c *Client) AddContactTag(ctx context.Context, contactID string, tags ...string) error {
	body := map[string][]string{"tags": tags}
	path := fmt.Sprintf("/contacts/%s/tags/", url.PathEscape(contactID))
	if err := c.doRequest(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("tagging contact failed: %w", err)
	}
	return nil
}

// APIError is a non-2xx response from HighLevel.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("highlevel API returned %d: %s", e.StatusCode, e.Body)
}

// doRequest executes a request against the HighLevel REST API.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody[:min(300, len(respBody))]),
		}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
