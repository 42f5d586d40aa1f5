package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"home_dispatch/internal/hub"
	"home_dispatch/internal/models"
	"home_dispatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseReplay unit tests ---

func TestParseReplay(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want int
	}{
		{"default_when_missing", "/ws", replayAll},
		{"zero_disables", "/ws?replay=0", 0},
		{"valid", "/ws?replay=5", 5},
		{"negative", "/ws?replay=-1", replayAll},
		{"too_large", "/ws?replay=5000", replayAll},
		{"invalid", "/ws?replay=all", replayAll},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseReplay(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

func TestTail(t *testing.T) {
	frames := []hub.Frame{{Seq: 1}, {Seq: 2}, {Seq: 3}}
	if got := tail(frames, replayAll); len(got) != 3 {
		t.Fatalf("replayAll returned %d frames", len(got))
	}
	if got := tail(frames, 2); len(got) != 2 || got[0].Seq != 2 {
		t.Fatalf("tail 2 = %+v", got)
	}
	if got := tail(frames, 0); len(got) != 0 {
		t.Fatalf("tail 0 = %+v", got)
	}
}

// --- websocket integration tests ---

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, hub.Frame) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	var f hub.Frame
	if err := json.Unmarshal(env.Data, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return env.Type, f
}

func TestWebSocket_BacklogThenLive(t *testing.T) {
	h0 := hub.New(10)
	h0.PublishRecord(models.ExecutionRecord{ID: "old1", Source: models.SourcePanel})
	h0.PublishRecord(models.ExecutionRecord{ID: "old2", Source: models.SourceVoice})
	s := &service.Service{ExecutionLog: &mockExecutionLog{hub: h0}}

	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv, "replay=1")
	defer conn.Close()

	// Only the newest retained frame is replayed
	typ, f := readFrame(t, conn)
	if typ != string(hub.FrameRecord) || f.Record == nil || f.Record.ID != "old2" {
		t.Fatalf("unexpected backlog frame %s %+v", typ, f)
	}

	// Wait until the handler has subscribed before publishing live frames
	deadline := time.Now().Add(2 * time.Second)
	for h0.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h0.PublishOutput("打开米家，打开卧室灯", "tap ok")
	h0.PublishRecord(models.ExecutionRecord{ID: "live", Source: models.SourceScheduler})

	typ, f = readFrame(t, conn)
	if typ != string(hub.FrameOutput) || f.Line != "tap ok" || f.Command != "打开米家，打开卧室灯" {
		t.Fatalf("unexpected output frame %s %+v", typ, f)
	}
	typ, f = readFrame(t, conn)
	if typ != string(hub.FrameRecord) || f.Record.ID != "live" {
		t.Fatalf("unexpected live frame %s %+v", typ, f)
	}
}

func TestWebSocket_ClientCloseUnsubscribes(t *testing.T) {
	h0 := hub.New(10)
	s := &service.Service{ExecutionLog: &mockExecutionLog{hub: h0}}

	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	deadline := time.Now().Add(2 * time.Second)
	for h0.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h0.Subscribers() != 1 {
		t.Fatalf("expected one subscriber, got %d", h0.Subscribers())
	}

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for h0.Subscribers() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := h0.Subscribers(); n != 0 {
		t.Fatalf("subscription leaked after client close: %d", n)
	}
}
