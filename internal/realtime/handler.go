package realtime

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/tandemapp/tandem/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients. The route sits behind the
// auth middleware, so the request context carries the user identity.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, auth.UserID(r.Context()))
		client.Run(r.Context())
	}
}
