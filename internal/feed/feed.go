package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 10
)

// Source is what the feed observes.
type Source interface {
	Status() session.Status
	Subscribe() (<-chan session.Status, func())
}

// Message is the JSON form of a session status.
type Message struct {
	State             string    `json:"state"`
	Message           string    `json:"message,omitempty"`
	Connected         bool      `json:"connected"`
	Temperature       *float64  `json:"temperature"`
	TargetTemperature *int      `json:"target_temperature"`
	RemainingSeconds  *int      `json:"remaining_seconds"`
	LastError         string    `json:"last_error,omitempty"`
	RunID             string    `json:"run_id,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewMessage converts a status. Health fields are null until the first
// successful poll.
func NewMessage(st session.Status) Message {
	m := Message{
		State:     st.State.Kind.String(),
		Message:   st.State.Message,
		Connected: st.Connected,
		LastError: st.LastError,
		RunID:     st.RunID,
		UpdatedAt: st.UpdatedAt.UTC(),
	}
	if h := st.Health; h != nil {
		temp := h.Temperature
		target := h.TargetTemperature
		m.Temperature = &temp
		m.TargetTemperature = &target
		m.RemainingSeconds = h.RemainingSeconds
	}
	return m
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server publishes session status over HTTP and WebSocket.
type Server struct {
	source Source
	logger *zap.Logger
	router *gin.Engine

	// closing ends open WebSocket streams. Hijacked connections outlive
	// http.Server.Shutdown, so they are stopped here instead.
	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	streams sync.WaitGroup
}

// NewServer builds the feed routes: GET /status and GET /ws.
func NewServer(source Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{source: source, logger: logger, closing: make(chan struct{})}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/status", s.status)
	router.GET("/ws", s.wsConnect)
	s.router = router

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes open
// streams and waits for them to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("State feed listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
		s.Close()
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

// Close ends every open WebSocket stream and waits for the handlers to
// return. New streams are refused afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.closing)
	}
	s.mu.Unlock()
	s.streams.Wait()
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, NewMessage(s.source.Status()))
}

func (s *Server) wsConnect(c *gin.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	s.streams.Add(1)
	s.mu.Unlock()
	defer s.streams.Done()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go s.startReader(conn, done)

	updates, cancel := s.source.Subscribe()
	defer cancel()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	s.logger.Debug("Feed client connected", zap.String("remote", c.Request.RemoteAddr))

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"),
				time.Now().Add(writeWait))
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case st, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(NewMessage(st)); err != nil {
				s.logger.Debug("Feed write failed", zap.Error(err))
				return
			}
		}
	}
}

// startReader drains incoming frames so control messages are handled and
// a closed connection is noticed.
func (s *Server) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
