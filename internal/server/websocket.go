package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// WebSocket upgrader with permissive settings for local use
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsPongTimeout  = 90 * time.Second
)

// AuditStreamHandler pushes audit records to WebSocket clients as they
// are appended to the trail.
type AuditStreamHandler struct {
	trail  audit.Trail
	logger *logging.Logger
}

// NewAuditStreamHandler creates a streaming handler over trail.
func NewAuditStreamHandler(trail audit.Trail, logger *logging.Logger) *AuditStreamHandler {
	if logger == nil {
		logger = logging.New("audit-stream")
	}
	return &AuditStreamHandler{trail: trail, logger: logger}
}

// ServeHTTP upgrades the connection and streams until the client leaves.
func (h *AuditStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err.Error())
		return
	}
	h.stream(conn)
}

func (h *AuditStreamHandler) stream(conn *websocket.Conn) {
	defer conn.Close()
	h.logger.Info("audit stream connected", "remote", conn.RemoteAddr().String())

	records, stop := h.trail.Watch()
	defer stop()

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	// Drain client frames so close and pong are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(rec); err != nil {
				h.logger.Info("audit stream closed", "error", err.Error())
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			h.logger.Info("audit stream client disconnected")
			return
		}
	}
}
