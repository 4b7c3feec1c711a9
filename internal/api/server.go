// Package api implements the HTTP surface (§6.1): the REST routes every
// trigger, the dashboard and Prometheus scrape against, guarded by HTTP
// Basic auth on every route except the two the spec carves out.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/db"
	"github.com/dan-online/autopulse-sub000/internal/domain"
	"github.com/dan-online/autopulse-sub000/internal/ingest"
	"github.com/dan-online/autopulse-sub000/internal/logger"
	"github.com/dan-online/autopulse-sub000/internal/metrics"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
)

// Store is the subset of db.Repository the HTTP surface reads from.
type Store interface {
	Get(ctx context.Context, id string) (*domain.ScanEvent, error)
	List(ctx context.Context, opts db.ListOptions) ([]*domain.ScanEvent, error)
	Stats(ctx context.Context) (db.Stats, error)
}

var _ Store = (*db.Repository)(nil)

// TickSource reports how long the most recent reconciliation tick took,
// the "speed" field of GET /stats.
type TickSource interface {
	TickDuration() time.Duration
}

// TriggerRegistry is the subset of triggers.Registry the HTTP surface
// dispatches requests against.
type TriggerRegistry interface {
	Get(name string) (triggers.Trigger, bool)
	BodyParser(name string) (triggers.BodyParser, bool)
	QueryParser(name string) (triggers.QueryParser, bool)
	Names() []string
}

// Server wraps the gin engine and every dependency a handler needs.
type Server struct {
	router *gin.Engine
	http   *http.Server

	cfg      *config.Config
	store    Store
	intake   *ingest.Intake
	triggers TriggerRegistry
	metrics  *metrics.Metrics
	tick     TickSource
	hub      *Hub

	startedAt time.Time
}

// Deps bundles everything Server needs, so main.go can wire it in one call.
type Deps struct {
	Config   *config.Config
	Store    Store
	Intake   *ingest.Intake
	Triggers TriggerRegistry
	Metrics  *metrics.Metrics
	Tick     TickSource
	Bus      *bus.Bus
}

// New builds the configured gin.Engine and mounts every route from §6.1.
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		router:    r,
		cfg:       deps.Config,
		store:     deps.Store,
		intake:    deps.Intake,
		triggers:  deps.Triggers,
		metrics:   deps.Metrics,
		tick:      deps.Tick,
		hub:       NewHub(deps.Bus),
		startedAt: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/stats", s.handleStats)

	protected := s.router.Group("")
	protected.Use(s.authMiddleware())
	{
		protected.POST("/login", s.handleLogin)
		protected.GET("/status/:id", s.handleStatus)
		protected.GET("/list", s.handleList)
		protected.GET("/triggers/:name", s.handleTriggerGet)
		protected.POST("/triggers/:name", s.handleTriggerPost)
		protected.GET("/api/config-template", s.handleConfigTemplate)
		protected.GET("/ws", s.hub.HandleConnection)
		if s.metrics != nil {
			protected.GET("/metrics", gin.WrapH(s.metrics.Handler()))
		}
	}
}

// authMiddleware enforces HTTP Basic auth when it's enabled (§6.1). It is
// mounted on every route except "/" and "/stats", which setupRoutes never
// registers under the protected group.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.Auth.Enabled {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Auth.Username)) != 1 || !s.cfg.CheckPassword(pass) {
			c.Header("WWW-Authenticate", `Basic realm="autopulse"`)
			respondError(c, http.StatusUnauthorized, errMsgUnauthorized, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// handleRoot answers GET / with the running build's revision (§6.1).
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"autopulse": gitRevision()})
}

func gitRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return config.Version
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return config.Version
}

// handleLogin is an auth probe: reaching this handler at all means the
// auth middleware already accepted the credentials (§6.1).
func (s *Server) handleLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStats answers GET /stats with the store's counts and the most
// recent reconciliation tick's duration in milliseconds.
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		respondInternal(c, err)
		return
	}

	var speedMS int64
	if s.tick != nil {
		speedMS = s.tick.TickDuration().Milliseconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
		"speed": speedMS,
	})
}

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	logger.Infof("api: listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and the websocket hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
