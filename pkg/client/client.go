// Package client is a Go consumer of the switchwatch websocket protocol.
//
// A Client reads envelopes in arrival order with Next. Requests are
// fire-and-forget: their replies arrive through Next like any other message,
// interleaved with broadcasts.
//
//	c, err := client.Dial(ctx, "ws://127.0.0.1:8765/", nil)
//	...
//	env, err := c.Next(10 * time.Second) // initial_data
//	err = c.GetSwitchPorts("192.168.1.1")
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/switchwatch/switchwatch/pkg/protocol"
)

// closeWait bounds the close handshake in Close.
const closeWait = time.Second

// HandshakeError reports a rejected websocket upgrade.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("client: handshake rejected with status %d: %v", e.StatusCode, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// Client is one websocket connection to a switchwatch server. Next must be
// called from a single goroutine; requests may be sent from any goroutine.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Dial connects to url. header is sent with the upgrade request and may carry
// the API key.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Next blocks until the next envelope arrives or timeout elapses. A zero
// timeout waits indefinitely. Frames that fail to decode are returned as a
// *protocol.DecodingError; the connection is still usable.
func (c *Client) Next(timeout time.Duration) (protocol.Envelope, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return protocol.Envelope{}, err
	}

	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.Decode(frame)
}

// GetSwitchPorts asks for every port of one switch. The reply is a
// switch_ports or error envelope.
func (c *Client) GetSwitchPorts(entityID string) error {
	return c.send(protocol.New(protocol.KindGetSwitchPorts, protocol.GetSwitchPorts{EntityID: entityID}))
}

// GetPortStatus asks for port n of one switch. The reply is a port_status or
// error envelope.
func (c *Client) GetPortStatus(entityID string, n int) error {
	return c.send(protocol.New(protocol.KindGetPortStatus, protocol.GetPortStatus{EntityID: entityID, SubResourceID: n}))
}

func (c *Client) send(env protocol.Envelope) error {
	msg, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Close sends a normal close frame and closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// The peer may already be gone; the socket is closed either way.
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)) //nolint:errcheck
	c.writeMu.Unlock()

	return c.conn.Close()
}

// IsClosed reports whether err from Next means the server ended the session.
func IsClosed(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
