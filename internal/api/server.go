// Package api serves the control and observability surface: health, metrics,
// and a token-protected set of status/pause/resume endpoints.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tick-core/internal/engine"
	"tick-core/pkg/journal"
)

// Server wires HTTP endpoints around the engine core.
type Server struct {
	Router    *gin.Engine
	Core      *engine.Core
	Journal   *journal.DB // optional
	APIKey    string
	JWTSecret string
}

// NewServer builds the router and registers routes.
func NewServer(core *engine.Core, jrnl *journal.DB, apiKey, jwtSecret string) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Core:      core,
		Journal:   jrnl,
		APIKey:    apiKey,
		JWTSecret: jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Core.Metrics.Registry, promhttp.HandlerOpts{})))

	s.Router.POST("/api/auth/token", s.issueToken)

	v1 := s.Router.Group("/api/v1", s.authRequired())
	v1.GET("/status", s.status)
	v1.GET("/position", s.position)
	v1.GET("/spread", s.spread)
	v1.GET("/orders", s.orders)
	v1.POST("/pause", s.pause)
	v1.POST("/resume", s.resume)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.Core.Status())
}

func (s *Server) position(c *gin.Context) {
	c.JSON(http.StatusOK, s.Core.Exposure())
}

func (s *Server) spread(c *gin.Context) {
	c.JSON(http.StatusOK, s.Core.Spread())
}

func (s *Server) orders(c *gin.Context) {
	if s.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := s.Journal.RecentOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) pause(c *gin.Context) {
	s.Core.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) resume(c *gin.Context) {
	s.Core.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}
