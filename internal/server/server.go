// Package server exposes the commitment and verification pipeline over
// HTTP. Handlers translate between JSON and pipeline calls; no
// verification logic lives here.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/alethia/internal/pipeline"
)

// New builds the HTTP engine around a ready pipeline
func New(p *pipeline.Pipeline) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery(), requestID())
	attachRoutes(g, p)
	return g
}

func attachRoutes(g *gin.Engine, p *pipeline.Pipeline) {
	api := NewAPI(p)

	g.GET("/healthz", api.Health)

	v1 := g.Group("/api/v1")
	v1.POST("/commit", api.Commit)
	v1.POST("/verify", api.Verify)
	v1.POST("/challenge", api.Challenge)
}

// requestID tags every response so a verification can be traced through
// logs. Inbound IDs are echoed back, everything else gets a fresh one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
