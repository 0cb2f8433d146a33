package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RIFAI1010/noedot-backend/internal/middleware"
)

func (h *Handlers) CreateDocument(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Documents.Create(c.Request.Context(), middleware.UserID(c), req.NoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) AddDocumentRelation(c *gin.Context) {
	var req addRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Documents.AddRelation(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.NoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handlers) GetDocument(c *gin.Context) {
	view, err := h.Documents.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) ListDocuments(c *gin.Context) {
	documents, err := h.Documents.List(c.Request.Context(), middleware.UserID(c),
		c.DefaultQuery("filter", "my"), c.Query("excludeNote"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, documents)
}

func (h *Handlers) UpdateDocumentName(c *gin.Context) {
	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	document, err := h.Documents.UpdateName(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, document)
}

type updateDocumentContentRequest struct {
	Content string `json:"content"`
}

func (h *Handlers) UpdateDocumentContent(c *gin.Context) {
	var req updateDocumentContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	document, err := h.Documents.UpdateContent(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, document)
}

type updateDocumentHeightRequest struct {
	Height int `json:"height" binding:"required,min=1"`
}

func (h *Handlers) UpdateDocumentHeight(c *gin.Context) {
	var req updateDocumentHeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	document, err := h.Documents.UpdateHeight(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Height)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, document)
}

func (h *Handlers) DeleteDocument(c *gin.Context) {
	message, err := h.Documents.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
