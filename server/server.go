// Package server exposes the back-office over HTTP with gin.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leandroluk/golem-admin/core"
	"github.com/leandroluk/golem-admin/logger"
	"github.com/leandroluk/golem-admin/metrics"
)

// Options configures a Server.
type Options struct {
	Compiler *core.Compiler
	// Pipeline wraps the driver calls of create, update and destroy.
	Pipeline *core.Pipeline
	Logger   *slog.Logger
	PerPage  int
	// PermittedIPs restricts access when non-empty.
	PermittedIPs   []string
	ClientIPHeader string
	// Location reads datetime filter values without an offset.
	Location *time.Location
}

// Server serves listings, lookups and record changes for every catalog model.
type Server struct {
	compiler       *core.Compiler
	pipeline       *core.Pipeline
	logger         *slog.Logger
	perPage        int
	permittedIPs   []string
	clientIPHeader string
	location       *time.Location
}

// New creates a Server.
func New(options Options) *Server {
	s := &Server{
		compiler:       options.Compiler,
		pipeline:       options.Pipeline,
		logger:         options.Logger,
		perPage:        options.PerPage,
		permittedIPs:   options.PermittedIPs,
		clientIPHeader: options.ClientIPHeader,
		location:       options.Location,
	}
	if s.pipeline == nil {
		s.pipeline = &core.Pipeline{}
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.perPage <= 0 {
		s.perPage = 25
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestMetrics())
	router.Use(s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	admin := router.Group("")
	admin.Use(ipAllowList(s.permittedIPs, s.clientIPHeader))
	admin.GET("/index/:model", s.index)
	admin.GET("/lookup/:model", s.lookup)
	admin.POST("/new/:model", s.create)
	admin.POST("/edit/:model/:id", s.update)
	admin.POST("/destroy/:model/:id", s.destroy)
	return router
}

func (s *Server) health(c *gin.Context) {
	if err := s.compiler.Driver().Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
