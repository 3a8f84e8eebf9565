package ws

import (
	"net/http"
	"slices"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Type string `json:"type"`
}

// Handler manages WebSocket connections
type Handler struct {
	manager    *workspace.Manager
	metrics    *monitoring.Metrics
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	pingPeriod time.Duration
}

// NewHandler creates a new WebSocket handler. origins lists the allowed
// browser origins; "*" or an empty list allows any. metrics may be nil.
func NewHandler(manager *workspace.Manager, metrics *monitoring.Metrics, logger *zap.Logger, origins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		manager:    manager,
		metrics:    metrics,
		logger:     logger,
		pingPeriod: pingPeriod,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
			return true
		}
		return slices.Contains(origins, origin)
	}
}

// Register mounts the stream route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/workspaces/:id/stream", h.HandleConnection)
}

// HandleConnection upgrades the request and streams workspace events until
// the client leaves or the workspace closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	subID, events, cancel := ws.Subscribe()
	defer cancel()

	logger := h.logger.With(
		zap.String("workspace_id", ws.ID),
		zap.String("subscriber", subID))
	logger.Debug("Stream connected")

	if err := h.send(conn, snapshot(ws)); err != nil {
		return
	}

	replies := make(chan any, 8)
	stop := make(chan struct{})
	readDone := make(chan struct{})
	defer close(stop)

	go h.readLoop(conn, ws, replies, stop, readDone, logger)

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				h.closeNormal(conn, "workspace closed")
				return
			}
			if err := h.send(conn, ev); err != nil {
				logger.Debug("Stream write failed", zap.Error(err))
				return
			}
			h.metrics.RecordWSMessage("out", string(ev.Type))
			if ev.Type == workspace.EventClosed {
				h.closeNormal(conn, "workspace closed")
				return
			}
		case msg := <-replies:
			if err := h.send(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.Debug("Stream ping failed", zap.Error(err))
				return
			}
		case <-readDone:
			logger.Debug("Stream disconnected")
			return
		}
	}
}

// readLoop consumes client frames. Replies go through the writer since a
// connection supports only one concurrent writer.
func (h *Handler) readLoop(conn *websocket.Conn, ws *workspace.Workspace, replies chan<- any, stop <-chan struct{}, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Stream read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var reply any
		var msg ClientMessage
		switch {
		case sonic.Unmarshal(data, &msg) != nil:
			msg.Type = "malformed"
			reply = errorMessage("malformed message")
		case msg.Type == "ping":
			reply = gin.H{"type": "pong", "timestamp": time.Now().Unix()}
		case msg.Type == "snapshot":
			reply = snapshot(ws)
		default:
			msg.Type = "unknown"
			reply = errorMessage("unknown message type")
		}

		h.metrics.RecordWSMessage("in", msg.Type)

		select {
		case replies <- reply:
		case <-stop:
			return
		}
	}
}

func snapshot(ws *workspace.Workspace) gin.H {
	return gin.H{
		"type":         "system",
		"workspace_id": ws.ID,
		"data":         ws.View(),
		"time":         time.Now(),
	}
}

func errorMessage(msg string) gin.H {
	return gin.H{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	}
}

func (h *Handler) send(conn *websocket.Conn, data any) error {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Handler) closeNormal(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
