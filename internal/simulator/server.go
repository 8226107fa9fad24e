package simulator

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/device"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second

	// DefaultTick is how often Run advances the unit
	DefaultTick = 200 * time.Millisecond
)

// updateRequest accepts both body shapes of POST /api/update.
type updateRequest struct {
	Action      string `json:"action"`
	Duration    *int   `json:"duration"`
	Temperature *int   `json:"temperature"`
}

// Server exposes a Unit through the device HTTP API.
type Server struct {
	unit    *Unit
	logger  *zap.Logger
	router  *gin.Engine
	offline atomic.Bool
}

// NewServer builds the device routes plus POST /sim/offline for fault injection.
func NewServer(unit *Unit, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{unit: unit, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/update", s.update)
	}
	router.POST("/sim/offline", s.setOffline)

	s.router = router
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetOffline makes the device API answer 503 until cleared.
func (s *Server) SetOffline(offline bool) {
	s.offline.Store(offline)
}

// Run advances the unit every tick and serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string, tick time.Duration) error {
	if tick <= 0 {
		tick = DefaultTick
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go s.simulate(ctx, tick)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Simulator listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) simulate(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.unit.Advance(now.Sub(last))
			last = now
		}
	}
}

func (s *Server) health(c *gin.Context) {
	if s.rejectOffline(c) {
		return
	}
	c.JSON(http.StatusOK, s.unit.Snapshot())
}

func (s *Server) update(c *gin.Context) {
	if s.rejectOffline(c) {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	var err error
	switch {
	case req.Action == "start":
		err = s.unit.Start()
	case req.Action == "stop":
		s.unit.Stop()
	case req.Action != "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action " + req.Action})
		return
	case req.Duration != nil && req.Temperature != nil:
		err = s.unit.SetParameters(*req.Duration, *req.Temperature)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected action or duration and temperature"})
		return
	}

	switch {
	case errors.Is(err, ErrOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, device.Ack{Status: "ok"})
	}
}

func (s *Server) setOffline(c *gin.Context) {
	var body struct {
		Offline bool `json:"offline"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	s.SetOffline(body.Offline)
	c.JSON(http.StatusOK, gin.H{"offline": body.Offline})
}

func (s *Server) rejectOffline(c *gin.Context) bool {
	if !s.offline.Load() {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device offline"})
	return true
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
