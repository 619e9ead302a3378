package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jwaygroup/voc-backend/internal/http/handlers"
	"github.com/jwaygroup/voc-backend/internal/http/middleware"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	HealthHandler      *handlers.HealthHandler
	IdeaHandler        *handlers.IdeaHandler
	DiagnosticsHandler *handlers.DiagnosticsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.AttachRequestID())
	router.Use(middleware.RequestLogger(cfg.Log))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	router.GET("/ideas", cfg.IdeaHandler.List)
	router.GET("/ideas/latest", cfg.IdeaHandler.Latest)
	router.POST("/ideas/related", cfg.IdeaHandler.Related)

	router.GET("/test-db", cfg.DiagnosticsHandler.TestDB)

	return router
}
