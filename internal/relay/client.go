// Package relay manages individual client connections, handling read/write
// pumps, rate limiting, and lifecycle state for each connection.
package relay

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	// pingPeriod must be shorter than readDeadline so the protocol-level
	// keepalive refreshes the peer before it times out.
	pingPeriod = 54 * time.Second
)

// connState tracks the per-connection lifecycle. Only a registered
// connection is a valid target for relay and broadcast operations; closed is
// terminal, a user returns only by opening a new connection.
type connState int

const (
	stateConnecting connState = iota
	stateRegistered
	stateClosed
)

// Client represents one user's live connection. The hub goroutine owns the
// state field; the pumps never touch it.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	userID string
	addr   string
	state  connState

	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	log            zerolog.Logger
}

// NewClient creates a Client for the given connection and user. The send
// channel is buffered so one slow peer cannot stall the hub loop.
func NewClient(conn *websocket.Conn, hub *Hub, userID, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	logger := zerolog.Nop()
	if hub != nil {
		logger = hub.log.With().Str("user_id", userID).Str("addr", addr).Logger()
	}

	return &Client{
		conn:           conn,
		send:           make(chan []byte, cfg.SendBuffer),
		hub:            hub,
		userID:         userID,
		addr:           addr,
		state:          stateConnecting,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		log:            logger,
	}
}

// UserID returns the identity the client connected with.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		c.log.Error().Err(err).Msg("setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			c.log.Error().Err(err).Msg("setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError logs the read failure by category and reports whether the
// read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn().Int64("limit", c.maxMessageSize).Msg("frame exceeded maximum size")
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.log.Debug().Err(err).Msg("client disconnected")
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("connection closed")
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.log.Warn().Err(err).Msg("unexpected close")
		return true
	}

	c.log.Warn().Err(err).Msg("read error")
	return true
}

func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn().
			Int("burst", c.rateLimit.Burst).
			Dur("refill_interval", c.rateLimit.RefillInterval).
			Msg("rate limit exceeded; discarding frame")
		return false
	}
	return true
}

// readPump moves raw frames from the socket into the hub's inbound channel.
// Decoding and dispatch happen on the hub goroutine so registry access stays
// serialized.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Error().Err(err).Msg("closing connection in readPump")
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		if !c.checkRateLimit() {
			continue
		}

		select {
		case c.hub.inbound <- inboundEvent{client: c, raw: raw}:
		case <-c.hub.ctx.Done():
			return
		}
	}
}

// writePump drains the send channel to the socket and keeps the connection
// alive with protocol-level pings. Each payload goes out as its own text
// frame; clients parse one JSON document per frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				c.log.Error().Err(err).Msg("setting write deadline")
				return
			}
			if !ok {
				c.writeCloseMessage()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Warn().Err(err).Msg("writing frame")
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				c.log.Error().Err(err).Msg("setting write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Error().Err(err).Msg("closing connection in writePump")
		}
	}
}

func (c *Client) writeCloseMessage() {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("writing close message")
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
