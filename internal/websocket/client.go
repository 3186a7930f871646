package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	outBufferSize = 32
	pingEvery     = 25 * time.Second
)

// Client is one browser connection. Inbound frames are ignored; the board is
// mutated over the JSON API and this socket only carries change events out.
type Client struct {
	conn *ws.Conn
	out  chan []byte
}

func newClient(conn *ws.Conn) *Client {
	return &Client{
		conn: conn,
		out:  make(chan []byte, outBufferSize),
	}
}

// serve pumps events to the connection until it drops. The read side exists
// only to notice the close.
func (c *Client) serve(ctx context.Context, hub *Hub) {
	hub.register(c)
	defer hub.unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := c.conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.out:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
