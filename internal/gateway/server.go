package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/hypershop/shopstream/internal/catalog"
	"github.com/hypershop/shopstream/internal/config"
	"github.com/hypershop/shopstream/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the shopstream gateway server.
type Server struct {
	Config   *config.Config
	Catalog  *catalog.Repo
	Producer Producer
	Conns    *ConnManager
	engine   *gin.Engine
	httpSrv  *http.Server
	startAt  time.Time
}

func NewServer(cfg *config.Config, repo *catalog.Repo, producer Producer) *Server {
	s := &Server{
		Config:   cfg,
		Catalog:  repo,
		Producer: producer,
		Conns:    NewConnManager(),
		startAt:  time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.ginHealth)
	engine.GET("/ws/chat/:user_id", s.ginWebSocket)
	engine.GET("/products", s.ginProductSearch)
	engine.GET("/products/:id", s.ginProductByID)

	s.engine = engine
	return s
}

// Handler exposes the route tree, primarily for tests driving the server
// through httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Start begins listening for connections and runs until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	cr := cron.New()
	cr.AddFunc("@hourly", s.sweepUploads)
	cr.Start()
	defer cr.Stop()

	addr := fmt.Sprintf(":%d", s.Config.Gateway.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	slog.Info("gateway starting", "port", s.Config.Gateway.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) ginHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startAt).String(),
		"clients": s.Conns.Count(),
	})
}

func (s *Server) ginProductByID(c *gin.Context) {
	p, err := s.Catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) ginProductSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	products, err := s.Catalog.Search(c.Request.Context(), query, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) ginWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn := &Conn{
		ID:          fmt.Sprintf("conn_%d", time.Now().UnixNano()),
		UserID:      c.Param("user_id"),
		WS:          ws,
		ConnectedAt: time.Now(),
	}
	s.Conns.Add(conn)
	defer s.Conns.Remove(conn.ID)

	slog.Info("client connected", "id", conn.ID, "user", conn.UserID)

	if welcome := s.Config.Gateway.Welcome; welcome != "" {
		conn.Send(systemEvt(welcome))
	}

	ctx := c.Request.Context()
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			slog.Debug("client disconnected", "id", conn.ID, "error", err)
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			conn.Send(protocol.NewEvent(protocol.EventError, "Invalid message format", protocol.SenderSystem))
			continue
		}

		switch env.Type {
		case protocol.EnvelopeChat:
			s.handleChat(ctx, conn, env)
		case protocol.EnvelopeFileUpload:
			s.handleFileUpload(ctx, conn, env)
		default:
			conn.Send(protocol.NewEvent(protocol.EventError,
				fmt.Sprintf("Unknown message type: %s", env.Type),
				protocol.SenderSystem))
		}
	}
}

// sweepUploads removes stored attachments older than the retention window.
func (s *Server) sweepUploads() {
	dir := s.Config.Uploads.Dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("upload sweep failed", "dir", dir, "error", err)
		}
		return
	}

	cutoff := time.Now().Add(-time.Duration(s.Config.Uploads.RetainHours) * time.Hour)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		slog.Info("swept expired uploads", "dir", dir, "removed", removed)
	}
}
