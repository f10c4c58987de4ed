package handlers

import (
	"crypto/subtle"
	"net/http"

	"storesync/internal/api/middleware"
	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/search"

	"github.com/gin-gonic/gin"
)

const searchSecretHeader = "X-Webhook-Secret"

type SearchHandler struct {
	service *search.Service
	logger  *logger.Logger
	config  *config.Config
}

func NewSearchHandler(service *search.Service, logger *logger.Logger, config *config.Config) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Webhook receives a changed CMS document and applies it to the index.
func (h *SearchHandler) Webhook(c *gin.Context) {
	log := h.logger.With("request_id", middleware.GetRequestID(c))

	if secret := h.config.SearchWebhookSecret; secret != "" {
		given := c.GetHeader(searchSecretHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}
	doc, err := search.ParseDocument(payload)
	if err != nil {
		log.Warn("Invalid search webhook: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !search.IsIndexedType(doc.Type) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "id": doc.ID, "outcome": search.OutcomeSkipped, "reason": "type not indexed"})
		return
	}

	outcome, err := h.service.SyncDocument(c.Request.Context(), doc)
	if err != nil {
		log.Error("Failed to sync %s to search: %v", doc.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": doc.ID, "outcome": outcome})
}

// Resync clears and rebuilds the whole index. The optional {"secret"} body
// must match SEARCH_WEBHOOK_SECRET when one is configured.
func (h *SearchHandler) Resync(c *gin.Context) {
	if !secretMatches(c, h.config.SearchWebhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	report, err := h.service.Resync(c.Request.Context())
	if err != nil {
		h.logger.Error("Search resync failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
