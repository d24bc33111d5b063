package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Command types accepted from the frontend.
const (
	CmdPlace         = "PLACE"
	CmdUpgrade       = "UPGRADE"
	CmdSell          = "SELL"
	CmdGenerateEvent = "GENERATE_EVENT"
	CmdSnapshot      = "SNAPSHOT"
)

// Message kinds sent to the frontend.
const (
	KindEvent  = "event"
	KindResult = "result"
)

// Command represents an incoming request from the frontend.
type Command struct {
	ID           string `json:"id,omitempty"` // echoed back in the result
	Type         string `json:"type"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	BuildingType string `json:"building_type,omitempty"`
}

// Result answers one Command.
type Result struct {
	ID      string      `json:"id,omitempty"`
	Command string      `json:"command"`
	OK      bool        `json:"ok"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Message is the envelope of every outgoing frame.
type Message struct {
	Kind   string            `json:"kind"`
	Event  *events.GameEvent `json:"event,omitempty"`
	Result *Result           `json:"result,omitempty"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	address string
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, address string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.opts.SendBuffer),
		address: address,
	}
}

// ReadPump pumps commands from the websocket connection to the store.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("WebSocket read failed", "error", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Warn("Failed to parse Command from WebSocket", "error", err)
			c.reply(Result{Command: "UNKNOWN", Code: "BAD_REQUEST", Error: err.Error()})
			continue
		}

		c.reply(c.handleCommand(cmd))
	}
}

func (c *Client) handleCommand(cmd Command) Result {
	store := c.hub.store
	res := Result{ID: cmd.ID, Command: cmd.Type}

	var err error
	switch cmd.Type {
	case CmdPlace:
		res.Data, err = store.PlaceBuilding(cmd.X, cmd.Y, cmd.BuildingType)
	case CmdUpgrade:
		res.Data, err = store.UpgradeBuilding(cmd.X, cmd.Y)
	case CmdSell:
		var b interface{}
		var refund int
		b, refund, err = store.SellBuilding(cmd.X, cmd.Y)
		if err == nil {
			res.Data = map[string]interface{}{"building": b, "refund": refund}
		}
	case CmdGenerateEvent:
		res.Data, err = store.GenerateRandomEvent()
	case CmdSnapshot:
		res.Data = store.Snapshot()
	default:
		res.Code = "BAD_REQUEST"
		res.Error = "unknown command " + cmd.Type
		return res
	}

	if err != nil {
		res.Data = nil
		res.Code = engine.ErrorCode(err)
		res.Error = err.Error()
		c.hub.logger.Debug("Command rejected", "command", cmd.Type, "code", res.Code, "wallet", c.address)
		return res
	}
	res.OK = true
	return res
}

func (c *Client) reply(res Result) {
	msg, err := json.Marshal(Message{Kind: KindResult, Result: &res})
	if err != nil {
		c.hub.logger.Error("Failed to serialize command result", "error", err)
		return
	}
	c.hub.sendTo(c, msg)
}

// WritePump pumps messages from the hub to the websocket connection.
// Each message is written as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
