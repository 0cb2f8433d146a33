package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFAI1010/noedot-backend/internal/token"
)

func newAuthRouter(tokens *token.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": UserID(c)})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokens := token.NewManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	router := newAuthRouter(tokens)

	get := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, get("").Code)
	assert.Equal(t, http.StatusUnauthorized, get("Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer not-a-token").Code)

	raw, err := tokens.NewAccessToken("user-1", "u@example.com", "U")
	require.NoError(t, err)
	w := get("Bearer " + raw)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")

	// Refresh tokens must not pass as access tokens.
	refresh, err := tokens.NewRefreshToken("user-1", "u@example.com", "U")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer "+refresh).Code)
}
