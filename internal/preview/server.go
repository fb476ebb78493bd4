package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Preview clients are local tools; the listener binds to loopback by
	// default.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Server struct {
	hub    *Hub
	engine *gin.Engine
	logger *slog.Logger
}

func NewServer(hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{hub: hub, engine: gin.New(), logger: logger.With("component", "preview")}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/state", s.handleState)
	s.engine.GET("/ws", s.handleWebSocket)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.hub.ClientCount()})
}

func (s *Server) handleState(c *gin.Context) {
	last, ok := s.hub.LastZoom()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, last)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.hub.serve(conn)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("preview server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return fmt.Errorf("preview server stopped: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
