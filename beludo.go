// Beludo, a dice-bluffing (Perudo) game played in the browser.
//
// Each room is reachable under /room/:code. Players land on / to pick a
// name and either create a room (freshly generated code) or join an
// existing one, then the room page opens a websocket at /room/:code/ws.
//
// Features:
// - One goroutine per room; every inbound event is handled atomically
// - Rooms created on demand, destroyed when emptied or won
// - Turn-ordered bidding with wild aces, liar and exact-call challenges
// - Sudden-death final round once only two players hold dice
// - Host failover and win-by-forfeit on disconnect
// - Room codes over a 16-symbol alphabet, growing on collision
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. The sid is the connection identifier
// players are keyed by; a second tab is a second player.
type Client struct {
	conn *websocket.Conn
	send chan any
	sid  string
}

func (c *Client) readPump(room *Room) {
	defer func() {
		select {
		case room.unreg <- c:
		case <-room.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case room.events <- clientEvent{client: c, msg: msg}:
		case <-room.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveWS attaches a new connection to the room named in the URL.
func serveWS(cfg *Config, dir *Directory) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := dir.get(ps.ByName("code"))
		if room == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAME: Upgrade error: %v", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
			sid:  uuid.NewString(),
		}

		select {
		case room.register <- client:
		case <-room.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(room)
	}
}

// qrHandler generates a PNG QR code for the current room URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("code") == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /room/:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// registerBeludoGame sets up routes so that:
//   - /                  → landing page with the create/join form
//   - /join              → form POST, creates or validates a room
//   - /room/:code        → HTML room view
//   - /room/:code/ws     → WebSocket for that room
//   - /room/:code/qr     → PNG QR code for that room URL
func registerBeludoGame(cfg *Config, mux *httprouter.Router) *Directory {
	dir := newDirectory(cfg)

	mux.GET(cfg.prefix+"/", serveHomePage(cfg))
	mux.POST(cfg.prefix+"/join", serveJoinForm(cfg, dir))
	mux.GET(cfg.prefix+"/room/:code", serveRoomPage(cfg, dir))
	mux.GET(cfg.prefix+"/room/:code/ws", serveWS(cfg, dir))
	mux.GET(cfg.prefix+"/room/:code/qr", qrHandler)

	return dir
}
