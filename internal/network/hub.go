package network

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/metrics"
	"github.com/MRamiBalles/DefiCity/server/internal/wallet"
)

// Options tunes the hub's buffers and limits.
type Options struct {
	SendBuffer      int
	BroadcastBuffer int
	MaxClients      int
	AllowedOrigins  []string // empty allows any origin
	Metrics         *metrics.Collector
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients   map[*Client]bool
	broadcast chan []byte
	mu        sync.Mutex
	logger    *logger.Logger
	store     *engine.Store
	metrics   *metrics.Collector
	opts      Options
	upgrader  websocket.Upgrader
}

// NewHub initializes a new WebSocket Hub serving commands against store.
func NewHub(store *engine.Store, log *logger.Logger, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.BroadcastBuffer <= 0 {
		opts.BroadcastBuffer = 256
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Get()
	}
	h := &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan []byte, opts.BroadcastBuffer),
		logger:    log,
		store:     store,
		metrics:   opts.Metrics,
		opts:      opts,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.opts.AllowedOrigins, origin)
}

// Run starts the Hub's main loop to fan broadcasts out to clients.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
			}
			h.mu.Unlock()
			return
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					// Slow consumer: drop it rather than block every other client.
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opts.MaxClients > 0 && len(h.clients) >= h.opts.MaxClients {
		return false
	}
	h.clients[c] = true
	h.metrics.RecordWSConnection(1)
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("WebSocket client disconnected", "wallet", c.address)
	}
}

// sendTo queues a message for one client if it is still connected.
func (h *Hub) sendTo(c *Client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
		h.metrics.RecordWSMessage(false)
	default:
		h.logger.Warn("Dropping reply for slow WebSocket client", "wallet", c.address)
	}
}

// BroadcastEvent takes a GameEvent, serializes it to JSON, and sends it to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(Message{Kind: KindEvent, Event: &event})
	if err != nil {
		h.logger.Error("Failed to serialize GameEvent for WebSocket broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast queue full, dropping event", "seq", event.Seq, "type", event.Type)
	}
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes new events to the Hub.
// The hub runs independently from the Store while picking up the same events.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	go func() {
		pollInterval := time.NewTicker(interval)
		defer pollInterval.Stop()

		lastSeq := eventLog.LastSeq()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				for _, event := range eventLog.Since(lastSeq) {
					h.BroadcastEvent(event)
					lastSeq = event.Seq
				}
			}
		}
	}()
}

// ServeWS upgrades the request and starts the client's pumps.
// The wallet address is taken from the request context when auth middleware set one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxClients > 0 && h.ClientCount() >= h.opts.MaxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("Failed to upgrade websocket connection", "error", err)
		return
	}

	addr, _ := wallet.AddressFromContext(r.Context())
	client := NewClient(h, conn, addr)
	if !h.add(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"))
		conn.Close()
		return
	}
	h.logger.Info("New WebSocket client connected", "wallet", addr)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
