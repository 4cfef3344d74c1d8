// Package ws streams the machine console over WebSocket. The stream is
// one-way kernel-to-client except for ping frames; nothing a client sends
// reaches kernel state.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/console"
	"github.com/microframe-os/microframe/internal/infrastructure/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure specific origins in production
	},
}

const writeTimeout = 10 * time.Second

// Handler manages console stream connections.
type Handler struct {
	hub     *console.Hub
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *console.Hub, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, metrics: metrics, logger: logger}
}

type frame struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// HandleConnection upgrades the request and streams console output until the
// client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	sub, cancel := h.hub.Subscribe()
	defer cancel()

	// Replay scrollback so a new client sees recent output.
	if err := h.send(conn, frame{Type: "console", Data: string(h.hub.Scrollback())}); err != nil {
		return
	}

	// Reader detects disconnects and relays pings; all writes stay on this
	// goroutine because the connection allows one writer at a time.
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var msg frame
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case data, ok := <-sub:
			if !ok {
				return
			}
			if err := h.send(conn, frame{Type: "console", Data: string(data)}); err != nil {
				return
			}
		case <-pings:
			if err := h.send(conn, frame{Type: "pong"}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, f frame) error {
	f.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(f)
}
