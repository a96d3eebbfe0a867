package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/ringroad/nasch/pkg/streaming"
)

const (
	sendChSize   = 1_024
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// ErrConnectionClosed is returned for sends after close.
var ErrConnectionClosed = errors.New("websocket connection closed")

// connection manages a WebSocket connection with a single write goroutine.
// Messages are never dropped: send blocks while the queue is full, and the
// write loop reconnects and retries a message whose write failed.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	broken chan *ws.Conn // read loop reports a dead connection
	done   chan struct{} // closed on shutdown
	failed chan struct{} // closed when reconnecting gave up
	err    error
	closed bool

	wsURL  string
	secret string

	// start_run message replayed after a reconnect.
	startMsg []byte

	backoff time.Duration
	logger  *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh:  make(chan []byte, sendChSize),
		ackCh:   make(chan streaming.AckMessage, ackChSize),
		broken:  make(chan *ws.Conn, 1),
		done:    make(chan struct{}),
		failed:  make(chan struct{}),
		backoff: time.Second,
		logger:  logger,
	}
}

// dial connects to the WebSocket server and starts read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop(conn)

	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop drains sendCh and writes messages to the current connection.
// It is the only writer, so it also owns reconnecting.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case conn := <-c.broken:
			if conn == c.current() && !c.reconnect(conn) {
				return
			}
		case data := <-c.sendCh:
			if !c.deliver(data) {
				return
			}
		}
	}
}

// deliver writes data, reconnecting until it succeeds. It returns false
// once the connection is closed or reconnecting gave up.
func (c *connection) deliver(data []byte) bool {
	for {
		conn := c.current()
		if conn != nil {
			err := write(conn, data)
			if err == nil {
				return true
			}
			c.logger.Warn("WebSocket write error", "error", err)
		}
		if !c.reconnect(conn) {
			return false
		}

		// reconnect already replayed start_run
		c.mu.Lock()
		replayed := bytes.Equal(data, c.startMsg)
		c.mu.Unlock()
		if replayed {
			return true
		}
	}
}

// readLoop reads ack messages from the server and routes them to ackCh.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			select {
			case c.broken <- conn:
			default:
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		if ack.Type == streaming.TypeAck {
			select {
			case c.ackCh <- ack:
			default:
				c.logger.Debug("Ack channel full, dropping", "for", ack.For)
			}
		}
	}
}

// reconnect re-establishes the connection with exponential backoff,
// replays the cached start_run message and starts a new read loop.
// It returns false when the connection was closed or every attempt failed.
func (c *connection) reconnect(broken *ws.Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if broken != nil {
		_ = broken.Close()
	}
	c.conn = nil
	c.mu.Unlock()

	backoff := c.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return false
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		start := c.startMsg
		c.mu.Unlock()

		// Replay start_run so the server knows which run the frames belong to.
		if start != nil {
			if err := write(conn, start); err != nil {
				c.logger.Warn("Failed to replay start_run after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return false
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		go c.readLoop(conn)
		return true
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
	c.mu.Lock()
	c.err = fmt.Errorf("reconnect failed after %d attempts", maxReconnect)
	c.mu.Unlock()
	close(c.failed)
	return false
}

// send queues data for the write loop, blocking while the queue is full.
func (c *connection) send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	case <-c.failed:
		return c.failure()
	default:
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-c.failed:
		return c.failure()
	}
}

func (c *connection) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// sendAndWait sends data and blocks until the server acknowledges with a
// matching ack message or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	if err := c.send(data); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
			// Not our ack, keep waiting.
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.failed:
			return c.failure()
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
