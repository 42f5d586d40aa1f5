package handlers

import (
	"net/http"
	"strconv"
	"time"

	"home_dispatch/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 1 << 12 // 4 KB
	wsBuffer    = 256     // frames queued per subscriber before drops
	replayAll   = -1
	maxReplayed = 1000
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Upgrader for HTTP -> WebSocket. Consider tightening CheckOrigin in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live execution log
// @Description  WebSocket stream. Replays recent frames (?replay=N, default all retained) then sends each new record and agent output line as {"type":"record"|"output","data":frame}.
// @Tags         logs
// @Param        replay  query  int  false  "Number of retained frames to replay (0 disables)"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	replay := h.parseReplay(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sub := h.services.ExecutionLog.Subscribe(wsBuffer)
	defer sub.Close()

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Replay the backlog before any live frame.
	for _, f := range tail(sub.Backlog, replay) {
		if err := h.sendFrame(conn, f); err != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed_backlog", "err", err)
			}
			return
		}
	}

	// Writer/select loop.
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case f, ok := <-sub.C:
			if !ok {
				return
			}
			if err := h.sendFrame(conn, f); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err, "dropped", sub.Dropped())
				}
				return
			}
		}
	}
}

// Helper: parseReplay reads ?replay=N; anything invalid replays everything retained.
func (h *Handler) parseReplay(c *gin.Context) int {
	if s := c.Query("replay"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 && v <= maxReplayed {
			return v
		}
	}
	return replayAll
}

func tail(frames []hub.Frame, n int) []hub.Frame {
	if n < 0 || n >= len(frames) {
		return frames
	}
	return frames[len(frames)-n:]
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// Helper: sendFrame writes one frame with a write deadline.
func (h *Handler) sendFrame(conn *websocket.Conn, f hub.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: string(f.Type), Data: f})
}
