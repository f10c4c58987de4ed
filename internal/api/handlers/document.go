package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"storesync/internal/docstore"
	"storesync/internal/logger"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	store  docstore.Store
	logger *logger.Logger
}

func NewDocumentHandler(store docstore.Store, logger *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		store:  store,
		logger: logger,
	}
}

// List returns documents of one type, paginated in id order.
func (h *DocumentHandler) List(c *gin.Context) {
	docType := c.Query("type")
	if docType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 250 {
		limit = 20
	}

	docs, err := h.store.ListByType(c.Request.Context(), docType)
	if err != nil {
		h.logger.Error("Failed to list %s documents: %v", docType, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch documents"})
		return
	}

	if docs == nil {
		docs = []docstore.Document{}
	}

	total := len(docs)
	start := total
	if page <= total/limit+1 {
		start = (page - 1) * limit
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"data": docs[start:end],
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id := c.Param("id")

	doc, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		h.logger.Error("Failed to fetch document %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}
