package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scoreboard/core"
)

// Conn is a websocket session with the server. Send and Receive may be used
// from different goroutines; each is safe for one caller at a time.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// Dial opens the realtime websocket.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	ws, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

// Send writes one request frame.
func (c *Conn) Send(msg core.ClientMessage) error {
	data, err := core.EncodeMessage(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Receive blocks for the next response frame. Error frames are returned as
// core.Failure values, not as errors.
func (c *Conn) Receive(ctx context.Context) (core.ClientResponse, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
	} else {
		_ = c.ws.SetReadDeadline(time.Time{})
	}
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if typ != websocket.TextMessage {
			continue
		}
		resp, err := core.DecodeResponse(data)
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return resp, nil
	}
}

// Close sends a close frame and releases the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
