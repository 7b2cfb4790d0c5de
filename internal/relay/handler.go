// Package relay exposes the HTTP handler that upgrades connections and hands
// them to the hub.
package relay

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	return isOriginAllowed(r)
}

// Handler returns the upgrade endpoint. The connecting client identifies
// itself with a userId query parameter; the identity is opaque and trusted
// as supplied, it is not verified here. Connections without a userId are
// rejected with a policy-violation close.
func Handler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("upgrade failed")
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			h.log.Warn().Str("addr", r.RemoteAddr).Msg("rejecting connection without userId")
			deadline := time.Now().Add(writeDeadline)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "userId required"), deadline)
			_ = conn.Close()
			return
		}

		client := NewClient(conn, h, userID, r.RemoteAddr)

		// The hub launches the pump goroutines once the client is registered.
		select {
		case h.register <- client:
		case <-h.ctx.Done():
			_ = conn.Close()
		}
	}
}

// SetupRoutes configures the relay's ServeMux with the upgrade endpoint and
// a liveness probe.
func SetupRoutes(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", Handler(h))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
