package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RIFAI1010/noedot-backend/internal/middleware"
	"github.com/RIFAI1010/noedot-backend/internal/services"
)

func (h *Handlers) CreateNote(c *gin.Context) {
	var req services.CreateNoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	note, err := h.Notes.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *Handlers) GetNote(c *gin.Context) {
	detail, err := h.Notes.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handlers) ListNotes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	items, err := h.Notes.List(c.Request.Context(), middleware.UserID(c), services.ListNotesInput{
		Filter: c.DefaultQuery("filter", "my"),
		Sort:   c.DefaultQuery("sort", "updatedAt"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handlers) UpdateNote(c *gin.Context) {
	var req services.UpdateNoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	note, err := h.Notes.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

type updateNoteDatesRequest struct {
	Begin *time.Time `json:"begin"`
	Due   *time.Time `json:"due"`
}

func (h *Handlers) UpdateNoteDates(c *gin.Context) {
	var req updateNoteDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	note, err := h.Notes.UpdateDates(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Begin, req.Due)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *Handlers) ConfirmNoteDue(c *gin.Context) {
	note, err := h.Notes.ConfirmDue(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *Handlers) FavoriteNote(c *gin.Context) {
	if err := h.Notes.Favorite(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "note added to favorites"})
}

func (h *Handlers) UnfavoriteNote(c *gin.Context) {
	if err := h.Notes.Unfavorite(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note removed from favorites"})
}

func (h *Handlers) GetNoteBlocks(c *gin.Context) {
	blocks, err := h.Notes.Blocks(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

type moveBlockRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func (h *Handlers) MoveNoteBlock(c *gin.Context) {
	var req moveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.Notes.MoveBlock(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("blockId"), req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "block moved"})
}

func (h *Handlers) DeleteNote(c *gin.Context) {
	if err := h.Notes.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note deleted successfully"})
}
