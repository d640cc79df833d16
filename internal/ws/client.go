package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/linkamarket/api/internal/auth"
	"github.com/linkamarket/api/internal/database"
	"github.com/linkamarket/api/internal/enum"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (we validate via JWT)
	},
}

// ShopResolver looks up a merchant's shop for feed authorization.
// Satisfied by *database.Queries.
type ShopResolver interface {
	GetShopByOwner(ctx context.Context, ownerID uuid.UUID) (database.Shop, error)
}

// Client represents a single WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string
	send chan []byte
}

// ReadPump pumps messages from the WebSocket connection to the hub
// The application runs ReadPump in a per-connection goroutine
// Clients don't send messages - we just detect disconnects
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Read loop - we just wait for disconnect or errors
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
// The application runs WritePump in a per-connection goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeShopWS handles a merchant's live order feed.
// Endpoint: WS /ws/shops/{sid}/orders?token=JWT
func ServeShopWS(hub *Hub, shops ShopResolver, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	claims, ok := authenticate(jwtSecret, w, r)
	if !ok {
		return
	}

	shopID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		http.Error(w, "invalid shop id", http.StatusBadRequest)
		return
	}

	// Only the shop's owner may watch its order feed.
	if claims.UserType != enum.UserTypeMerchant {
		http.Error(w, "shop access denied", http.StatusForbidden)
		return
	}
	shop, err := shops.GetShopByOwner(r.Context(), claims.UserID)
	if err != nil || shop.ID != shopID {
		http.Error(w, "shop access denied", http.StatusForbidden)
		return
	}

	serve(hub, shopRoom(shopID), w, r)
}

// ServeDriverWS handles the shared feed of orders becoming available for
// pickup. Endpoint: WS /ws/driver/orders?token=JWT
func ServeDriverWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	claims, ok := authenticate(jwtSecret, w, r)
	if !ok {
		return
	}

	if claims.UserType != enum.UserTypeDriver {
		http.Error(w, "driver access denied", http.StatusForbidden)
		return
	}

	serve(hub, driversRoom, w, r)
}

// authenticate validates the JWT passed as a query param. Browsers cannot set
// an Authorization header on a WebSocket upgrade.
func authenticate(jwtSecret string, w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

// serve upgrades the connection, registers the client, and starts the pumps.
func serve(hub *Hub, room string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		room: room,
		send: make(chan []byte, 256),
	}
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
