package main

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tkovis/spatial-grid/grid"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
	maxWorldNameLen   = 30
	maxWanderers      = 5000
	binaryMoveLen     = 5
	binaryMoveMarker  = 0x01
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	world      *World
	entityID   grid.EntityID
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// current returns the world and avatar the client is attached to. The hub
// reads it only after ReadPump has exited, so no lock is needed.
func (c *Client) current() (*World, grid.EntityID) {
	return c.world, c.entityID
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Binary move: [0x01, x_hi, x_lo, y_hi, y_lo], signed 16-bit world coords
		if msgType == websocket.BinaryMessage && len(message) == binaryMoveLen && message[0] == binaryMoveMarker {
			c.handleBinaryMove(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }() // send on a channel closed by unregister
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgMove:
		c.handleMove(env.D)
	case MsgArea:
		c.handleArea(env.D)
	case MsgLeave:
		c.handleLeave()
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgWorlds, Data: c.hub.worlds.ListWorlds()})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("bad create message")
			return
		}
	}
	name := msg.Name
	if name == "" {
		name = "World"
	}
	if len(name) > maxWorldNameLen {
		name = name[:maxWorldNameLen]
	}
	wanderers := -1
	if msg.Wanderers != nil {
		wanderers = min(max(*msg.Wanderers, 0), maxWanderers)
	}

	w, err := c.hub.worlds.CreateWorld(name, wanderers)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"wid": w.ID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("bad join message")
		return
	}
	if msg.Token != "" {
		c.resume(msg.Token)
		return
	}
	w := c.hub.worlds.GetWorld(msg.WID)
	if w == nil {
		c.sendError("world not found")
		return
	}
	if c.world == w {
		// Swap avatars in place; leaving through the manager would drop the world
		w.RemoveAvatar(c.entityID)
		c.world = nil
		c.entityID = 0
	} else {
		c.handleLeave()
	}
	name := msg.Name
	if name == "" {
		name = "Guest"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	a, err := w.AddAvatar(name, c)
	if errors.Is(err, ErrWorldFull) {
		c.sendError("world full")
		return
	}
	if err != nil {
		log.Printf("join %s: %v", w.ID, err)
		c.sendError("internal error")
		return
	}
	c.welcome(w, a.ID, false)
}

func (c *Client) resume(token string) {
	wid, eid, err := c.hub.auth.ValidateToken(token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	if c.world != nil && (c.world.ID != wid || c.entityID != eid) {
		c.handleLeave()
	}
	w := c.hub.worlds.GetWorld(wid)
	if w == nil {
		c.sendError("world not found")
		return
	}
	if _, err := w.ResumeAvatar(eid, c); err != nil {
		c.sendError("avatar expired")
		return
	}
	c.welcome(w, eid, true)
}

func (c *Client) welcome(w *World, id grid.EntityID, resumed bool) {
	token, err := c.hub.auth.IssueToken(w.ID, id)
	if err != nil {
		log.Printf("issue token: %v", err)
	}
	c.world = w
	c.entityID = id
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		WID:     w.ID,
		EID:     id,
		Token:   token,
		Resumed: resumed,
		Bounds:  w.cfg.Bounds,
		Dims:    w.cfg.Dims,
	}})
}

// handleBinaryMove decodes a compact 5-byte move message
func (c *Client) handleBinaryMove(msg []byte) {
	if c.world == nil {
		return
	}
	x := float64(int16(uint16(msg[1])<<8 | uint16(msg[2])))
	y := float64(int16(uint16(msg[3])<<8 | uint16(msg[4])))
	c.world.SetTarget(c.entityID, x, y)
}

func (c *Client) handleMove(data json.RawMessage) {
	if c.world == nil {
		return
	}
	var msg MoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.world.SetTarget(c.entityID, msg.X, msg.Y)
}

func (c *Client) handleArea(data json.RawMessage) {
	if c.world == nil {
		return
	}
	var msg AreaMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.world.SetView(c.entityID, msg.W, msg.H)
}

func (c *Client) handleLeave() {
	if c.world == nil {
		return
	}
	c.hub.worlds.RemoveAvatar(c.world, c.entityID)
	c.world = nil
	c.entityID = 0
}
