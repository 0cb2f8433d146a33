package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RIFAI1010/noedot-backend/internal/middleware"
)

func (h *Handlers) CreateBoard(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Boards.Create(c.Request.Context(), middleware.UserID(c), req.NoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) AddBoardRelation(c *gin.Context) {
	var req addRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Boards.AddRelation(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.NoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) GetBoard(c *gin.Context) {
	detail := c.Query("detail") == "true"
	view, err := h.Boards.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"), detail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) ListBoards(c *gin.Context) {
	boards, err := h.Boards.List(c.Request.Context(), middleware.UserID(c),
		c.DefaultQuery("filter", "my"), c.Query("excludeNote"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (h *Handlers) UpdateBoardName(c *gin.Context) {
	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	board, err := h.Boards.UpdateName(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handlers) DeleteBoard(c *gin.Context) {
	message, err := h.Boards.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Columns

type boardColumnRequest struct {
	Title string `json:"title"`
}

func (h *Handlers) CreateBoardColumn(c *gin.Context) {
	var req boardColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	column, err := h.Boards.CreateColumn(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, column)
}

func (h *Handlers) UpdateBoardColumn(c *gin.Context) {
	var req boardColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	column, err := h.Boards.UpdateColumn(c.Request.Context(), middleware.UserID(c), c.Param("columnId"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, column)
}

func (h *Handlers) DeleteBoardColumn(c *gin.Context) {
	if err := h.Boards.DeleteColumn(c.Request.Context(), middleware.UserID(c), c.Param("columnId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "column deleted"})
}

// Cards

type createCardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *Handlers) CreateBoardCard(c *gin.Context) {
	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	card, err := h.Boards.CreateCard(c.Request.Context(), middleware.UserID(c), c.Param("columnId"), req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

type updateCardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *Handlers) UpdateBoardCard(c *gin.Context) {
	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	card, err := h.Boards.UpdateCard(c.Request.Context(), middleware.UserID(c), c.Param("cardId"), req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handlers) DeleteBoardCard(c *gin.Context) {
	if err := h.Boards.DeleteCard(c.Request.Context(), middleware.UserID(c), c.Param("cardId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "card deleted"})
}

type moveCardRequest struct {
	Position int    `json:"position" binding:"required,min=1"`
	ColumnID string `json:"columnId"`
}

func (h *Handlers) MoveBoardCard(c *gin.Context) {
	var req moveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.Boards.MoveCard(c.Request.Context(), middleware.UserID(c), c.Param("cardId"), req.ColumnID, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "card moved"})
}
