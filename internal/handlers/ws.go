package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/finvault/walletd/internal/handlers/render"
	"github.com/finvault/walletd/internal/handlers/userctx"
	"github.com/finvault/walletd/internal/logger"
	"github.com/finvault/walletd/internal/ws"
)

func handleWebsocket(hub *ws.Hub, l logger.Logger) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response
			l.Debug("Websocket upgrade failed", "user_id", user.ID, "error", err)
			return
		}

		hub.Register(user.ID, conn)
		defer func() {
			hub.Unregister(user.ID, conn)
			_ = conn.Close()
		}()

		// The socket is push only. Reading drains client control frames
		// and returns when the peer goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
