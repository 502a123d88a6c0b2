package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peakcrm/authorizer/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(handler *Handler, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	if cfg.Observability.TraceEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	v1 := router.Group("/v1/authorize")
	v1.GET("/identity", handler.ResolveIdentity)
	v1.POST("/rbac", handler.CheckAccess)
	v1.GET("/visibility/:category", handler.ResolveScope)

	return router
}
