// Package handlers exposes the HTTP surface. Each handler binds and
// validates input, delegates to a service, and maps errors to the
// shared {"error", "code"} JSON shape.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/services"
)

type Handlers struct {
	Auth      *services.AuthService
	Notes     *services.NoteService
	Tables    *services.TableService
	Documents *services.DocumentService
	Boards    *services.BoardService
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.From(err); ok {
		c.JSON(appErr.Status, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperr.CodeBadRequest})
}
