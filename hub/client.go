package hub

import (
	"time"

	log "swipeserver/cloudlog"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Outbound messages buffered per client before it counts as stalled.
	sendBuffer = 64
)

// Client is one participant's socket on a conversation hub.
type Client struct {
	// userID comes from the verified token, never from a frame.
	userID string

	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound messages. Only the hub sends on or closes it.
	send chan *Message
}

// readPump hands every frame the participant sends to the hub. It is the only
// reader of conn, and leaving the hub when it stops is what ends the session.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var message Message
		err := c.conn.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read pump error: %v", err)
			}
			break
		}
		message.client = c
		if !c.hub.receive(&message) {
			break
		}
	}
}

// writePump writes hub output and keepalive pings. It is the only writer of conn.
func (c *Client) writePump() {
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
			if err := c.conn.WriteJSON(message); err != nil {
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

// start runs both pumps. The client must already be joined to its hub.
func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

func newClient(userID string, conn *websocket.Conn) *Client {
	return &Client{userID: userID, conn: conn, send: make(chan *Message, sendBuffer)}
}
