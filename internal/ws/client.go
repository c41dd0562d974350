package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 512                 // Maximum control-frame size allowed from peer.
)

// Client is a middleman between one websocket connection and the hub. The
// stream is push-only: the sole frames a client sends are subscription
// changes; all writes go through the REST surface.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	// conversations the client listens to; touched only by the hub loop.
	conversations map[string]bool
}

// controlFrame is what clients send: {"op":"subscribe","conversation_id":...}.
type controlFrame struct {
	Op             string `json:"op"`
	ConversationID string `json:"conversation_id"`
}

// readPump consumes subscription frames until the connection dies.
func (c *Client) readPump() {
	defer func() {
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
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read: %v", err)
			}
			break
		}

		var frame controlFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.ConversationID == "" {
			continue
		}

		switch frame.Op {
		case "subscribe":
			ok, err := c.hub.memberships.IsMember(context.Background(), frame.ConversationID, c.userID)
			if err != nil {
				log.Printf("ws: check membership: %v", err)
				continue
			}
			if !ok {
				continue
			}
			c.hub.subscribe <- subscription{client: c, conversationID: frame.ConversationID, active: true}
		case "unsubscribe":
			c.hub.subscribe <- subscription{client: c, conversationID: frame.ConversationID, active: false}
		}
	}
}

// writePump pushes hub events to the connection and keeps it alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Drain queued events into the same frame batch.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
