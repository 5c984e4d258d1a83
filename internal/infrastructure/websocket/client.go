package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

// Client is one streaming simulation connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *Frame

	id string
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan *Frame, sendBufferSize), id: id}
}

// readPump drains (and discards) any client traffic purely to detect
// disconnects and keep pong deadlines current; this stream is
// server -> client only, so no command protocol lives here.
func (c *Client) readPump(done chan<- struct{}) {
	defer func() {
		close(done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("client_id", c.id).Err(err).Msg("websocket unexpected close")
			}
			return
		}
	}
}

// writePump delivers frames queued on c.send until the channel is
// closed (by Hub.unregister, once the simulation finishes), pinging
// in between to keep the connection alive on slow simulations.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
			if frame.Type == FrameDone || frame.Type == FrameError {
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
