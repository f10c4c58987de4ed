package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"storesync/internal/api/middleware"
	"storesync/internal/catalog"
	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/shopify"

	"github.com/gin-gonic/gin"
)

type ShopifyHandler struct {
	syncer *catalog.Syncer
	bulk   *catalog.BulkSyncer
	logger *logger.Logger
	config *config.Config
}

func NewShopifyHandler(syncer *catalog.Syncer, bulk *catalog.BulkSyncer, logger *logger.Logger, config *config.Config) *ShopifyHandler {
	return &ShopifyHandler{
		syncer: syncer,
		bulk:   bulk,
		logger: logger,
		config: config,
	}
}

// Webhook handles products/create, products/update and products/delete.
// Anything the sender could fix by retrying is answered with a 200 error body
// so the platform does not escalate its retry schedule.
func (h *ShopifyHandler) Webhook(c *gin.Context) {
	log := h.logger.With("request_id", middleware.GetRequestID(c))

	if h.config.ShopifyWebhookSecret == "" {
		log.Error("Webhook secret is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return
	}

	// Read the raw payload; the signature covers these exact bytes
	payload, err := c.GetRawData()
	if err != nil {
		log.Warn("Failed to read webhook payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": "Failed to read payload"})
		return
	}

	if !shopify.VerifyWebhook(payload, c.GetHeader(shopify.HeaderHmac), h.config.ShopifyWebhookSecret) {
		log.Warn("Rejected webhook with invalid signature from %q", c.GetHeader(shopify.HeaderDomain))
		c.JSON(http.StatusOK, gin.H{"error": "Invalid webhook signature"})
		return
	}

	topic := c.GetHeader(shopify.HeaderTopic)
	switch topic {
	case shopify.TopicProductsCreate, shopify.TopicProductsUpdate, "":
		h.handleProductWebhook(c, log, payload)
	case shopify.TopicProductsDelete:
		h.handleProductDeleteWebhook(c, log, payload)
	default:
		log.Debug("Unhandled webhook topic: %s", topic)
		c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": true, "reason": "unhandled topic " + topic})
	}
}

func (h *ShopifyHandler) handleProductWebhook(c *gin.Context, log *logger.Logger, payload []byte) {
	product, err := shopify.ParseProductWebhook(payload)
	if err != nil {
		log.Warn("Invalid product webhook: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	log.Info("Product webhook for %d (%s)", product.ID, product.Title)

	result, err := h.syncer.SyncProduct(c.Request.Context(), product)
	if err != nil {
		h.respondSyncError(c, log, err)
		return
	}
	respondResult(c, result)
}

func (h *ShopifyHandler) handleProductDeleteWebhook(c *gin.Context, log *logger.Logger, payload []byte) {
	productID, err := shopify.ParseDeleteWebhook(payload)
	if err != nil {
		log.Warn("Invalid product delete webhook: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	log.Info("Product delete webhook for %d", productID)

	result, err := h.syncer.MarkDeleted(c.Request.Context(), productID)
	if err != nil {
		h.respondSyncError(c, log, err)
		return
	}
	respondResult(c, result)
}

func (h *ShopifyHandler) respondSyncError(c *gin.Context, log *logger.Logger, err error) {
	log.Error("Failed to sync product: %v", err)
	if storeErr, ok := catalog.StoreErrorOf(err); ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Document store transaction failed",
			"details": gin.H{
				"statusCode": storeErr.StatusCode,
				"message":    storeErr.Message,
			},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func respondResult(c *gin.Context, result models.SyncResult) {
	body := gin.H{
		"ok":         true,
		"productId":  result.ProductID,
		"documentId": result.DocumentID,
		"status":     result.Status,
	}
	switch result.Status {
	case models.SyncStatusSkipped:
		body["skipped"] = true
		body["reason"] = result.Reason
	case models.SyncStatusDeleted:
		body["variantsDeleted"] = result.VariantsDeleted
	default:
		body["variantsSynced"] = result.VariantsSynced
		body["variantsDeleted"] = result.VariantsDeleted
	}
	c.JSON(http.StatusOK, body)
}

// SyncProducts walks the whole catalog. The optional {"secret"} body must
// match BULK_SYNC_SECRET when one is configured.
func (h *ShopifyHandler) SyncProducts(c *gin.Context) {
	if !secretMatches(c, h.config.BulkSyncSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if h.bulk == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Shopify API credentials not configured"})
		return
	}

	h.logger.Info("Bulk sync started [%s]", middleware.GetRequestID(c))
	report := h.bulk.Run(c.Request.Context())

	body := gin.H{
		"success": report.Error == "",
		"summary": report.Summary,
		"results": report.Results,
	}
	if report.Error != "" {
		body["error"] = report.Error
	}
	c.JSON(http.StatusOK, body)
}

// secretMatches reads the optional {"secret"} body. An unset expected secret
// admits every request.
func secretMatches(c *gin.Context, expected string) bool {
	if expected == "" {
		return true
	}
	var request struct {
		Secret string `json:"secret"`
	}
	if raw, err := c.GetRawData(); err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &request)
	}
	return subtle.ConstantTimeCompare([]byte(request.Secret), []byte(expected)) == 1
}
