package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"storesync/internal/api"
	"storesync/internal/app"
	"storesync/internal/config"
	"storesync/internal/logger"

	"github.com/gin-gonic/gin"
)

var (
	initOnce sync.Once
	initErr  error
	services *app.App
	router   *gin.Engine
)

// initRouter builds the services once per function instance; warm
// invocations reuse the store connection and router.
func initRouter() error {
	initOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			initErr = fmt.Errorf("failed to load configuration: %w", err)
			return
		}
		log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Production: true})

		gin.SetMode(gin.ReleaseMode)

		services, err = app.New(context.Background(), cfg, log)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize services: %w", err)
			return
		}
		router = api.New(cfg, log, services).GetRouter()
	})
	return initErr
}

// Handler is the serverless entry point. The response is only sent once it
// returns, so background cache writes are not awaited here. A write cut off
// by the instance freezing leaves a stale snapshot and the next webhook for
// that product does a full, idempotent sync.
func Handler(w http.ResponseWriter, r *http.Request) {
	if err := initRouter(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	router.ServeHTTP(w, r)
}
