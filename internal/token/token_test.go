package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	raw, err := m.NewAccessToken("user-1", "u@example.com", "U")
	require.NoError(t, err)

	claims, err := m.ParseAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "U", claims.Name)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	m := newTestManager()

	access, err := m.NewAccessToken("user-1", "u@example.com", "U")
	require.NoError(t, err)
	refresh, err := m.NewRefreshToken("user-1", "u@example.com", "U")
	require.NoError(t, err)

	_, err = m.ParseRefresh(access)
	assert.Error(t, err)
	_, err = m.ParseAccess(refresh)
	assert.Error(t, err)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager("other-access", "other-refresh", time.Hour, 24*time.Hour)

	raw, err := other.NewAccessToken("user-1", "u@example.com", "U")
	require.NoError(t, err)

	_, err = m.ParseAccess(raw)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("access-secret", "refresh-secret", -time.Minute, 24*time.Hour)

	raw, err := m.NewAccessToken("user-1", "u@example.com", "U")
	require.NoError(t, err)

	_, err = m.ParseAccess(raw)
	assert.Error(t, err)
}

func TestRefreshTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, newTestManager().RefreshTTL())
}
