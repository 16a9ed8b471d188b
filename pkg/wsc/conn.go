// Package wsc is a small duplex websocket client used by the live provider
// adapters. It owns the read pump, serializes writes, and maps handshake
// failures to typed reasons.
package wsc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
	"github.com/murmurlabs/verbatim/pkg/logging"
)

// Message is one inbound websocket frame.
type Message struct {
	Type int
	Data []byte
}

// Config configures one dial.
type Config struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	// ReadLimit bounds inbound frame size; zero means the gorilla default.
	ReadLimit int64
}

// Conn is one open connection. Writes are serialized; reads are pumped into
// the Messages channel by a dedicated goroutine.
type Conn struct {
	ws     *websocket.Conn
	msgs   chan Message
	logger *slog.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}

	errMu   sync.Mutex
	readErr error
}

// Dial opens a connection. A 401/403 handshake answer carries the auth
// reason so the caller can surface AuthenticationFailed; other handshake
// failures carry the connect reason.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	ws, resp, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errorsx.Wrap(fmt.Errorf("handshake rejected with status %d", resp.StatusCode), errorsx.ReasonSTTAuth)
		}
		return nil, errorsx.Wrap(err, errorsx.ReasonSTTConnect)
	}
	if cfg.ReadLimit > 0 {
		ws.SetReadLimit(cfg.ReadLimit)
	}

	c := &Conn{
		ws:     ws,
		msgs:   make(chan Message, 64),
		logger: logging.NewComponentLogger(nil, "wsc"),
		done:   make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

func (c *Conn) readPump() {
	defer close(c.msgs)
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			c.errMu.Lock()
			c.readErr = err
			c.errMu.Unlock()
			return
		}
		select {
		case c.msgs <- Message{Type: mt, Data: data}:
		case <-c.done:
			return
		}
	}
}

// Messages yields inbound frames in receipt order. The channel closes when
// the connection ends; Err distinguishes orderly close from failure.
func (c *Conn) Messages() <-chan Message { return c.msgs }

// Err returns the read error that closed Messages, or nil for an orderly
// close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.readErr == nil {
		return nil
	}
	if websocket.IsCloseError(c.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return c.readErr
}

// WriteBinary sends one binary frame.
func (c *Conn) WriteBinary(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// WriteJSON sends one JSON text frame.
func (c *Conn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// WriteText sends one text frame.
func (c *Conn) WriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with a short deadline, then tears the socket
// down. Safe to call concurrently with writes and more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		werr := c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		if werr != nil && werr != websocket.ErrCloseSent {
			c.logger.Debug("close frame write failed", slog.String("error", werr.Error()))
		}
		err = c.ws.Close()
	})
	return err
}
