package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateAndGet(t *testing.T) {
	p := &fakeProvider{slots: map[string][]string{
		"2025-11-03": {"2025-11-03T16:00:00-06:00"},
	}}
	m := NewManager(SessionConfig{
		Provider:         p,
		ProviderTimezone: "America/Chicago",
		DefaultDisplayTZ: "America/Chicago",
		Now:              fixedNow,
	}, 0, nil)
	defer m.Close()

	s, err := m.Create(context.Background(), "org-1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	// Availability was loaded eagerly for the default timezone.
	assert.Equal(t, 1, s.cache.Len())

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerSweepExpiresIdleSessions(t *testing.T) {
	p := &fakeProvider{slots: map[string][]string{}}
	current := fixedNow()
	m := NewManager(SessionConfig{
		Provider:         p,
		ProviderTimezone: "America/Chicago",
		Now:              func() time.Time { return current },
	}, 0, nil)
	defer m.Close()
	m.ttl = 30 * time.Minute
	m.now = func() time.Time { return current }

	s, err := m.Create(context.Background(), "org-1")
	require.NoError(t, err)

	current = current.Add(10 * time.Minute)
	m.sweep()
	assert.Equal(t, 1, m.Count())

	current = current.Add(25 * time.Minute)
	m.sweep()
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
