package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, p CalendarProvider) (*httptest.Server, *Manager) {
	t.Helper()
	m := NewManager(SessionConfig{
		Provider:         p,
		ProviderTimezone: "America/Chicago",
		DefaultDisplayTZ: "America/Chicago",
		Now:              fixedNow,
	}, 0, nil)
	t.Cleanup(m.Close)

	r := chi.NewRouter()
	r.Mount("/api/booking", NewHandler(m, nil).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) Snapshot {
	t.Helper()
	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestBookingFlowOverHTTP(t *testing.T) {
	p := &fakeProvider{slots: map[string][]string{
		"2025-11-03": {"2025-11-03T16:00:00-06:00", "2025-11-03T10:00:00-06:00"},
	}}
	srv, _ := newTestServer(t, p)

	resp := postJSON(t, srv.URL+"/api/booking/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	require.NotEmpty(t, snap.SessionID)
	base := fmt.Sprintf("%s/api/booking/sessions/%s", srv.URL, snap.SessionID)

	resp = postJSON(t, base+"/timezone", timezoneRequest{Timezone: "America/New_York"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeSnapshot(t, resp)
	assert.Equal(t, "America/New_York", snap.Timezone)
	assert.Equal(t, "2025-11-03", snap.SelectedDate)
	require.Len(t, snap.Slots, 2)
	assert.Equal(t, "17:00:00", snap.Slots[1].DisplayStart)

	resp = postJSON(t, base+"/slot", slotRequest{StartTime: "17:00:00"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeSnapshot(t, resp)
	assert.Equal(t, StateSlotSelected, snap.State)

	resp = postJSON(t, base+"/confirm", confirmRequest{ContactID: "contact-3", Title: "Intake"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confirmed struct {
		Appointment Appointment `json:"appointment"`
		Session     Snapshot    `json:"session"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&confirmed))
	assert.Equal(t, "2025-11-03T16:00:00-06:00", confirmed.Appointment.StartTime)
	assert.Equal(t, StateBooked, confirmed.Session.State)

	// Booked is terminal over HTTP too.
	resp = postJSON(t, base+"/timezone", timezoneRequest{Timezone: "America/Denver"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerValidation(t *testing.T) {
	p := &fakeProvider{slots: map[string][]string{
		"2025-11-03": {"2025-11-03T16:00:00-06:00"},
	}}
	srv, _ := newTestServer(t, p)

	resp := postJSON(t, srv.URL+"/api/booking/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decodeSnapshot(t, resp)
	base := fmt.Sprintf("%s/api/booking/sessions/%s", srv.URL, snap.SessionID)

	resp = postJSON(t, srv.URL+"/api/booking/sessions/nope/date", dateRequest{Date: "2025-11-03"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, base+"/timezone", timezoneRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, base+"/date", dateRequest{Date: "2025-10-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, base+"/navigate", navigateRequest{Direction: "up"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, base+"/slot", slotRequest{StartTime: "03:00:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, base+"/confirm", confirmRequest{ContactID: "c"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
