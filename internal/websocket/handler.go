package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and serves the connection as a hub
// client until it disconnects.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			// The dashboard is served on the household LAN, often by IP.
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		newClient(conn).serve(r.Context(), hub)
	}
}
