// Package token issues and verifies the HS256 access and refresh
// tokens. The two kinds are signed with separate secrets so a leaked
// access secret cannot mint refresh tokens.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
)

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// UserID returns the subject, which carries the user's id.
func (c *Claims) UserID() string {
	return c.Subject
}

type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *Manager) sign(userID, email, name string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) NewAccessToken(userID, email, name string) (string, error) {
	return m.sign(userID, email, name, m.accessSecret, m.accessTTL)
}

func (m *Manager) NewRefreshToken(userID, email, name string) (string, error) {
	return m.sign(userID, email, name, m.refreshSecret, m.refreshTTL)
}

// RefreshTTL is exposed so the refresh-token allowlist can expire
// entries in lockstep with the tokens themselves.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *Manager) parse(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthenticated("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, apperr.Unauthenticated("invalid token")
	}
	return claims, nil
}

func (m *Manager) ParseAccess(raw string) (*Claims, error) {
	return m.parse(raw, m.accessSecret)
}

func (m *Manager) ParseRefresh(raw string) (*Claims, error) {
	return m.parse(raw, m.refreshSecret)
}
