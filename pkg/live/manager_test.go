package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager()
	require.NotNil(t, m)
	assert.Equal(t, DefaultMaxSessions, m.maxSessions)
	assert.Equal(t, DefaultIdleTimeout, m.idleTimeout)
	assert.False(t, m.initialized)
	assert.False(t, m.HasSessions())
}

func TestStartSessionRequiresInitialize(t *testing.T) {
	m := NewManager()
	_, err := m.StartSession("main", SessionOptions{Headless: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestGetSessionNotFound(t *testing.T) {
	m := NewManager()
	_, err := m.GetSession("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCloseSessionNotFound(t *testing.T) {
	m := NewManager()
	err := m.CloseSession("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSetters(t *testing.T) {
	m := NewManager()
	m.SetMaxSessions(2)
	m.SetIdleTimeout(time.Minute)
	assert.Equal(t, 2, m.maxSessions)
	assert.Equal(t, time.Minute, m.idleTimeout)
}

func TestShutdownWithoutInitialize(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Shutdown())
}

func TestSessionUpdateLastUsed(t *testing.T) {
	s := &Session{LastUsedAt: time.Now().Add(-time.Hour)}
	before := s.LastUsedAt
	s.UpdateLastUsed()
	assert.True(t, s.LastUsedAt.After(before))
}
