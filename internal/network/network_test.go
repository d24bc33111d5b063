package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/DefiCity/server/internal/domain/catalog"
	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
)

type wireMessage struct {
	Kind  string `json:"kind"`
	Event *struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"event"`
	Result *struct {
		ID      string          `json:"id"`
		Command string          `json:"command"`
		OK      bool            `json:"ok"`
		Code    string          `json:"code"`
		Data    json.RawMessage `json:"data"`
	} `json:"result"`
}

type testServer struct {
	hub   *Hub
	store *engine.Store
	srv   *httptest.Server
	url   string
}

func startTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	el := events.NewEventLog(nil)
	store := engine.NewStore(catalog.Default(), engine.DefaultSettings(),
		engine.WithEventLog(el), engine.WithSeed(7), engine.WithMetrics(metrics.New()))

	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	hub := NewHub(store, logger.Discard(), opts)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, el, 5*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return &testServer{hub: hub, store: store, srv: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func resultFor(id string) func(wireMessage) bool {
	return func(m wireMessage) bool {
		return m.Kind == KindResult && m.Result != nil && m.Result.ID == id
	}
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPlaceCommandRepliesAndBroadcasts(t *testing.T) {
	ts := startTestServer(t, Options{})
	conn := dial(t, ts.url)
	waitClients(t, ts.hub, 1)

	if err := conn.WriteJSON(Command{ID: "1", Type: CmdPlace, X: 0, Y: 0, BuildingType: "stablecoin"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var sawResult, sawEvent bool
	readUntil(t, conn, func(m wireMessage) bool {
		switch {
		case m.Kind == KindResult && m.Result.ID == "1":
			if !m.Result.OK {
				t.Errorf("place failed: %+v", m.Result)
			}
			sawResult = true
		case m.Kind == KindEvent && m.Event.Type == string(events.EventTypeBuildingPlaced):
			if m.Event.Payload["tokens"].(float64) != 920 {
				t.Errorf("event payload = %v", m.Event.Payload)
			}
			sawEvent = true
		}
		return sawResult && sawEvent
	})

	if got := ts.store.State().Tokens; got != 920 {
		t.Errorf("tokens = %d, want 920", got)
	}

	conn.WriteJSON(Command{ID: "2", Type: CmdPlace, X: 0, Y: 0, BuildingType: "dex"})
	msg := readUntil(t, conn, resultFor("2"))
	if msg.Result.OK || msg.Result.Code != "OCCUPIED_CELL" {
		t.Errorf("second place = %+v, want OCCUPIED_CELL", msg.Result)
	}
}

func TestCommandErrors(t *testing.T) {
	ts := startTestServer(t, Options{})
	conn := dial(t, ts.url)

	cases := []struct {
		cmd  Command
		code string
	}{
		{Command{ID: "a", Type: CmdSell, X: 3, Y: 3}, "NO_BUILDING_AT_CELL"},
		{Command{ID: "b", Type: CmdUpgrade, X: 3, Y: 3}, "NO_BUILDING_AT_CELL"},
		{Command{ID: "c", Type: CmdPlace, X: 99, Y: 0, BuildingType: "dex"}, "INVALID_TARGET"},
		{Command{ID: "d", Type: CmdPlace, BuildingType: "casino"}, "UNKNOWN_BUILDING_TYPE"},
		{Command{ID: "e", Type: "DEMOLISH"}, "BAD_REQUEST"},
	}
	for _, tc := range cases {
		if err := conn.WriteJSON(tc.cmd); err != nil {
			t.Fatalf("write: %v", err)
		}
		msg := readUntil(t, conn, resultFor(tc.cmd.ID))
		if msg.Result.OK || msg.Result.Code != tc.code {
			t.Errorf("%s: got ok=%v code=%q, want %q", tc.cmd.Type, msg.Result.OK, msg.Result.Code, tc.code)
		}
	}
}

func TestSnapshotAndGenerateEvent(t *testing.T) {
	ts := startTestServer(t, Options{})
	conn := dial(t, ts.url)

	conn.WriteJSON(Command{ID: "ev", Type: CmdGenerateEvent})
	if msg := readUntil(t, conn, resultFor("ev")); !msg.Result.OK {
		t.Fatalf("generate event failed: %+v", msg.Result)
	}
	conn.WriteJSON(Command{ID: "ev2", Type: CmdGenerateEvent})
	if msg := readUntil(t, conn, resultFor("ev2")); msg.Result.Code != "EVENT_ACTIVE" {
		t.Errorf("second generate = %+v, want EVENT_ACTIVE", msg.Result)
	}

	conn.WriteJSON(Command{ID: "snap", Type: CmdSnapshot})
	msg := readUntil(t, conn, resultFor("snap"))
	var snap engine.Snapshot
	if err := json.Unmarshal(msg.Result.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ActiveEvent == nil || snap.State.Tokens != 1000 || snap.GridSize != 20 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestMaxClients(t *testing.T) {
	ts := startTestServer(t, Options{MaxClients: 1})
	dial(t, ts.url)
	waitClients(t, ts.hub, 1)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url, nil)
	if err == nil {
		t.Fatal("second connection should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("refusal response = %v, want 503", resp)
	}
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(nil, logger.Discard(), Options{AllowedOrigins: []string{"http://localhost:5173"}})
	cases := map[string]bool{
		"":                      true,
		"http://localhost:5173": true,
		"http://evil.example":   false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := hub.checkOrigin(r); got != want {
			t.Errorf("checkOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	ts := startTestServer(t, Options{})
	conn := dial(t, ts.url)
	waitClients(t, ts.hub, 1)
	conn.Close()
	waitClients(t, ts.hub, 0)
}

func TestShutdownReleasesConnectionGauge(t *testing.T) {
	m := metrics.New()
	store := engine.NewStore(catalog.Default(), engine.DefaultSettings(), engine.WithMetrics(m))
	hub := NewHub(store, logger.Discard(), Options{Metrics: m})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	waitClients(t, hub, 2)
	if got := atomic.LoadInt64(&m.WSConnectionsActive); got != 2 {
		t.Fatalf("active connections = %d, want 2", got)
	}

	cancel()
	<-stopped
	if got := atomic.LoadInt64(&m.WSConnectionsActive); got != 0 {
		t.Errorf("active connections after shutdown = %d, want 0", got)
	}
}
