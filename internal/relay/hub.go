// Package relay coordinates connection registration, presence broadcast,
// message forwarding, and staleness eviction via the Hub type.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// inboundEvent carries one raw frame from a client's read pump to the hub
// loop.
type inboundEvent struct {
	client *Client
	raw    []byte
}

// Hub owns the connection registry. Registration, unregistration, inbound
// frame dispatch, and the supervisor tick all arrive over channels into one
// select loop, so the registry has exactly one writer.
type Hub struct {
	registry   *registry
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    zerolog.Logger
}

// NewHub creates a Hub ready to manage connections. Call Run in its own
// goroutine before serving upgrades.
func NewHub(logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   newRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        logger,
	}
}

// OnlineUsers returns the ids of every currently registered user, sorted.
func (h *Hub) OnlineUsers() []string {
	return h.registry.snapshot()
}

// Run is the hub's main event loop. It processes connection events, inbound
// frames, and the supervisor timer until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	sweep := time.NewTicker(currentConfig().SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case ev := <-h.inbound:
			h.handleInbound(ev)

		case now := <-sweep.C:
			h.sweep(now)
		}
	}
}

// handleRegister inserts the client, closing any prior connection for the
// same user first so at most one connection per user exists, then announces
// the user online and replies with the current presence snapshot.
func (h *Hub) handleRegister(c *Client) {
	if c == nil {
		h.log.Warn().Msg("nil client registration; skipping")
		return
	}

	displaced := h.registry.register(c, time.Now())
	if displaced != nil && displaced != c {
		h.log.Info().Str("user_id", c.userID).Msg("superseding existing connection")
		h.closeClient(displaced, websocket.CloseNormalClosure, "connection superseded")
	}

	c.state = stateRegistered
	h.log.Info().
		Str("user_id", c.userID).
		Str("addr", c.addr).
		Int("online", h.registry.size()).
		Msg("client registered")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()

	h.broadcastStatus(c.userID, true)
	h.sendSnapshot(c)
}

// handleUnregister removes the client's registry entry only if that entry is
// this exact connection; a just-superseded connection's close must not evict
// its successor. Only a removal announces the user offline.
func (h *Hub) handleUnregister(c *Client) {
	if c == nil {
		return
	}

	removed := h.registry.unregister(c.userID, c)
	h.releaseClient(c)
	if !removed {
		return
	}

	h.log.Info().
		Str("user_id", c.userID).
		Int("online", h.registry.size()).
		Msg("client unregistered")
	h.broadcastStatus(c.userID, false)
}

// handleInbound refreshes liveness for any inbound traffic, then dispatches
// on the frame type. Malformed and unrecognized frames are logged and
// dropped, never fatal.
func (h *Hub) handleInbound(ev inboundEvent) {
	if ev.client == nil {
		return
	}
	h.registry.touch(ev.client.userID, time.Now())

	frame, err := decodeInbound(ev.raw)
	if err != nil {
		ev.client.log.Debug().Err(err).Msg("dropping malformed frame")
		return
	}

	switch frame.Type {
	case FrameTypePing:
		h.enqueue(ev.client, encodePong())
	case FrameTypeMessage:
		h.relayMessage(ev.client, frame)
	default:
		ev.client.log.Debug().Str("frame_type", frame.Type).Msg("ignoring unrecognized frame type")
	}
}

// relayMessage forwards a chat message to the recipient's live connection if
// present and echoes a message_sent acknowledgment to the sender. Delivery is
// best-effort: an absent recipient drops the message from the real-time path
// with no error to the sender, and the echo is sent regardless of delivery
// outcome.
func (h *Hub) relayMessage(sender *Client, f InboundFrame) {
	if f.SessionID == "" || f.RecipientID == "" || f.Content == "" {
		sender.log.Warn().
			Str("session_id", f.SessionID).
			Str("recipient_id", f.RecipientID).
			Msg("dropping malformed message frame")
		return
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)

	if recipient, ok := h.registry.get(f.RecipientID); ok {
		h.enqueue(recipient, encodeMessage(f.SessionID, sender.userID, f.Content, timestamp))
	}

	// Local echo, not a delivery confirmation. Sent to whichever connection
	// currently holds the sender's registry entry.
	if current, ok := h.registry.get(sender.userID); ok {
		h.enqueue(current, encodeMessageSent(f.SessionID, f.Content, timestamp))
	}
}

// broadcastStatus announces an online/offline transition to every registered
// connection, including the subject's own. A failed enqueue for one peer
// never prevents delivery to the others.
func (h *Hub) broadcastStatus(userID string, isOnline bool) {
	payload := encodeUserStatus(userID, isOnline)
	for _, c := range h.registry.all() {
		h.enqueue(c, payload)
	}
}

// sendSnapshot sends the full current presence set to exactly one
// connection, used immediately after that connection registers.
func (h *Hub) sendSnapshot(c *Client) {
	h.enqueue(c, encodeOnlineUsers(h.registry.snapshot()))
}

// enqueue hands a payload to the client's write pump without blocking the
// hub loop. It reports false when the client is not a valid target or its
// buffer is full; the payload is then dropped.
func (h *Hub) enqueue(c *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn().Interface("panic", r).Msg("recovered from enqueue on closed client")
		}
	}()

	if c == nil || c.state != stateRegistered {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.log.Warn().Msg("send buffer full; dropping frame")
		return false
	}
}

// sweep force-closes connections whose last inbound traffic exceeds the
// staleness threshold and announces them offline so peers do not keep a
// stale presence view.
func (h *Hub) sweep(now time.Time) {
	threshold := currentConfig().StaleThreshold
	for _, c := range h.registry.stale(now, threshold) {
		c.log.Info().Dur("threshold", threshold).Msg("evicting stale connection")
		h.closeClient(c, websocket.CloseGoingAway, "stale connection")
		if h.registry.unregister(c.userID, c) {
			h.broadcastStatus(c.userID, false)
		}
	}
}

// closeClient transitions the client to closed, sends a close frame, and
// tears the transport down. Immediate and unconditional: no drain, no wait
// for in-flight frames.
func (h *Hub) closeClient(c *Client, closeCode int, reason string) {
	h.releaseClient(c)
	if c.conn == nil {
		return
	}
	deadline := time.Now().Add(writeDeadline)
	if err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, reason), deadline); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("writing close frame")
		}
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("closing connection")
	}
}

// releaseClient marks the client closed and closes its send channel exactly
// once, waking the write pump. Hub-goroutine only.
func (h *Hub) releaseClient(c *Client) {
	if c.state == stateClosed {
		return
	}
	c.state = stateClosed
	close(c.send)
}

// shutdownClients closes every active connection during hub shutdown. The
// send channels are closed first so the write pumps wake and exit instead of
// waiting out the ping interval.
func (h *Hub) shutdownClients() {
	clients := h.registry.all()
	h.log.Info().Int("clients", len(clients)).Msg("closing all client connections")

	for _, c := range clients {
		h.releaseClient(c)
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Error().Err(err).Msg("closing client connection during shutdown")
		}
	}
}

// Shutdown stops the hub loop, closes all connections, and waits for the
// pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
