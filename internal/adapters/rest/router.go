package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	Mode           string
	MaxUploadBytes int64
}

// NewRouter mounts every route at the root and again under /api.
func NewRouter(h *Handler, opts RouterOptions, logger zerolog.Logger) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(CORS())
	router.Use(Logger(logger))
	router.Use(MaxBodySize(opts.MaxUploadBytes))

	for _, prefix := range []string{"", "/api"} {
		g := router.Group(prefix)
		{
			g.GET("/health", h.Health)
			g.POST("/chat", h.Chat)
			g.POST("/pii/detect", h.Detect)
			g.POST("/pii/redact-and-chat", h.RedactAndChat)
		}
	}

	return router
}
