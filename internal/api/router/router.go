package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartcampus/occupancy-pipeline/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes.
// metrics may be nil, in which case /metrics is not mounted.
func SetupRouter(deps *handler.Dependencies, metrics http.Handler) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(AccessLogMiddleware(deps.Logger, "/health", "/metrics"))
	r.Use(CORSMiddleware())

	if deps.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.MaxUploadBytes
	}

	feedHandler := handler.NewFeedHandler(deps)

	r.GET("/", feedHandler.Root)
	r.GET("/health", feedHandler.Health)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	// POST /upload-feed - queue a camera snapshot
	r.POST("/upload-feed", feedHandler.UploadFeed)

	api := r.Group("/api")
	{
		// POST /api/upload-feed - path used by existing camera clients
		api.POST("/upload-feed", feedHandler.UploadFeed)
	}

	return r
}
