package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storesync/internal/api/handlers"
	"storesync/internal/api/middleware"
	"storesync/internal/app"
	"storesync/internal/config"
	"storesync/internal/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	app    *app.App
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, a *app.App) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Initialize handlers
	shopifyHandler := handlers.NewShopifyHandler(a.Syncer, a.Bulk, logger, cfg)
	searchHandler := handlers.NewSearchHandler(a.Search, logger, cfg)
	documentHandler := handlers.NewDocumentHandler(a.Store, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.DocumentStore})
	})

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Shopify Integration
		shopify := v1.Group("/shopify")
		{
			shopify.POST("/webhook", shopifyHandler.Webhook)
			shopify.POST("/sync", shopifyHandler.SyncProducts)
		}

		// Search index
		search := v1.Group("/search")
		{
			search.POST("/webhook", searchHandler.Webhook)
			search.POST("/resync", searchHandler.Resync)
		}

		// Documents
		documents := v1.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.Get)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		app:    a,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	// Bulk sync runs inside one request, so writes get a long deadline
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter returns the Gin router for Vercel
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
