package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/gate"
	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// NewRouter wires the handlers behind the gate. Every route under
// /api/public and /api/admin records an access entry for requests made with
// a known token.
func NewRouter(h *Handler, g *gate.Gate, logs gate.LogAppender, l *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(l), gin.Recovery(), CORS(g))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", h.Status)
		apiGroup.POST("/user/create", h.CreateUser)
		apiGroup.GET("/user/confirm/:user/:nonce", h.ConfirmUser)
	}

	public := apiGroup.Group("/public", gate.Recorder(logs, l))
	{
		create := g.Require(schema.PermissionCreate)
		public.POST("/qr/generate", create, h.GenerateQR)
		public.POST("/qr/generate/:type", create, h.GenerateQR)
		public.GET("/qr/simple/:type", create, h.GenerateSimpleQR)
		public.POST("/qr/scan", g.Require(schema.PermissionScan), h.ScanQR)
	}

	adminGroup := apiGroup.Group("/admin", gate.Recorder(logs, l), g.Require(schema.PermissionAdmin))
	{
		adminGroup.GET("/users", h.ListUsers)
		adminGroup.POST("/users", h.AdminCreateUser)
		adminGroup.POST("/users/:id/invalidate", h.InvalidateUser)
		adminGroup.GET("/tokens", h.ListTokens)
		adminGroup.POST("/tokens", h.CreateToken)
		adminGroup.POST("/tokens/:id/invalidate", h.InvalidateToken)
		adminGroup.GET("/logs", h.ListLogs)
		adminGroup.GET("/logs/summary", h.SummarizeLogs)
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, ReasonNotFound, "API route not found")
	})

	return r
}

// RequestLogger logs one line per request once it completed.
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		l.Info("request completed",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

// CORS allows browser clients from any origin, including the credential header.
func CORS(g *gate.Gate) gin.HandlerFunc {
	allowHeaders := "Content-Type, Content-Length, Accept-Encoding, Authorization, " + g.Header()
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
