package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RIFAI1010/noedot-backend/internal/middleware"
)

type createEntityRequest struct {
	NoteID string `json:"noteId" binding:"required"`
}

type addRelationRequest struct {
	NoteID string `json:"noteId" binding:"required"`
}

type updateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handlers) CreateTable(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Tables.Create(c.Request.Context(), middleware.UserID(c), req.NoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) AddTableRelation(c *gin.Context) {
	var req addRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Tables.AddRelation(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.NoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) GetTable(c *gin.Context) {
	detail := c.Query("detail") == "true"
	view, err := h.Tables.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"), detail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) ListTables(c *gin.Context) {
	tables, err := h.Tables.List(c.Request.Context(), middleware.UserID(c),
		c.DefaultQuery("filter", "my"), c.Query("excludeNote"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (h *Handlers) UpdateTableName(c *gin.Context) {
	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	table, err := h.Tables.UpdateName(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handlers) DeleteTable(c *gin.Context) {
	message, err := h.Tables.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Columns

type colRequest struct {
	Title string `json:"title"`
}

func (h *Handlers) CreateCol(c *gin.Context) {
	var req colRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	col, err := h.Tables.CreateCol(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

func (h *Handlers) UpdateCol(c *gin.Context) {
	var req colRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	col, err := h.Tables.UpdateCol(c.Request.Context(), middleware.UserID(c), c.Param("colId"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

func (h *Handlers) DeleteCol(c *gin.Context) {
	if err := h.Tables.DeleteCol(c.Request.Context(), middleware.UserID(c), c.Param("colId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "column deleted"})
}

// Rows

func (h *Handlers) CreateRow(c *gin.Context) {
	row, err := h.Tables.CreateRow(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *Handlers) DeleteRow(c *gin.Context) {
	if err := h.Tables.DeleteRow(c.Request.Context(), middleware.UserID(c), c.Param("rowId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "row deleted"})
}

// Cells

type createCellRequest struct {
	RowID   string `json:"rowId" binding:"required"`
	ColID   string `json:"colId" binding:"required"`
	Content string `json:"content"`
}

func (h *Handlers) CreateRowData(c *gin.Context) {
	var req createCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cell, err := h.Tables.CreateRowData(c.Request.Context(), middleware.UserID(c), req.RowID, req.ColID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cell)
}

type updateCellRequest struct {
	Content string `json:"content"`
}

func (h *Handlers) UpdateRowData(c *gin.Context) {
	var req updateCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cell, err := h.Tables.UpdateRowData(c.Request.Context(), middleware.UserID(c), c.Param("cellId"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

func (h *Handlers) DeleteRowData(c *gin.Context) {
	if err := h.Tables.DeleteRowData(c.Request.Context(), middleware.UserID(c), c.Param("cellId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cell deleted"})
}
