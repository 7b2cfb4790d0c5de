package relay

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if len(hub.OnlineUsers()) != 0 {
		t.Errorf("Expected empty presence set, got %v", hub.OnlineUsers())
	}
}

func TestHubShutdownWithoutClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}
}

func TestEnqueueSkipsInvalidTargets(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub.enqueue(nil, []byte("x")) {
		t.Error("Enqueue to nil client should report failure")
	}

	// A client that never reached the registered state is not a valid
	// target for relay or broadcast traffic.
	connecting := NewClient(nil, hub, "A", "127.0.0.1:1")
	if hub.enqueue(connecting, []byte("x")) {
		t.Error("Enqueue to connecting client should report failure")
	}

	closed := NewClient(nil, hub, "B", "127.0.0.1:2")
	closed.state = stateRegistered
	hub.releaseClient(closed)
	if hub.enqueue(closed, []byte("x")) {
		t.Error("Enqueue to closed client should report failure")
	}
}

func TestReleaseClientIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := NewClient(nil, hub, "A", "127.0.0.1:1")
	c.state = stateRegistered

	hub.releaseClient(c)
	hub.releaseClient(c)

	if c.state != stateClosed {
		t.Error("Expected client to remain closed")
	}
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	SetConfig(&Config{SendBuffer: 1})
	t.Cleanup(func() { SetConfig(nil) })

	hub := NewHub(zerolog.Nop())
	c := NewClient(nil, hub, "A", "127.0.0.1:1")
	c.state = stateRegistered

	if !hub.enqueue(c, []byte("first")) {
		t.Fatal("First enqueue should succeed")
	}
	if hub.enqueue(c, []byte("second")) {
		t.Error("Enqueue into a full buffer should drop, not block")
	}
}
