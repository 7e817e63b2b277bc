package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/heist-game/backend/internal/game"
	"github.com/heist-game/backend/internal/models"
	"github.com/rs/zerolog/log"
)

var errBackpressure = errors.New("backpressure")

// Client is one websocket connection. ID is the transient connection id;
// RoomCode and PlayerID are set once the connection is seated in a room.
type Client struct {
	ID   string
	Conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	roomCode string
	playerID string
	closed   bool
}

// Seat remembers which room and player this connection speaks for
func (c *Client) Seat(roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode, c.playerID = roomCode, playerID
}

// Seated returns the room and player this connection speaks for
func (c *Client) Seated() (roomCode, playerID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode, c.playerID
}

// TrySend queues a frame without blocking
func (c *Client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return errBackpressure
	}
	return nil
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Hub tracks live connections by connection id and delivers outboxes
type Hub struct {
	Clients map[string]*Client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{Clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.Clients[c.ID] = c
	total := len(h.Clients)
	h.mu.Unlock()
	log.Debug().Str("module", "handlers.hub").Str("conn", c.ID).Int("total", total).Msg("client registered")
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.Clients[c.ID]; ok {
		delete(h.Clients, c.ID)
		c.close()
	}
	total := len(h.Clients)
	h.mu.Unlock()
	log.Debug().Str("module", "handlers.hub").Str("conn", c.ID).Int("total", total).Msg("client unregistered")
}

// Count returns the number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// Deliver sends every notification to its connection. Unknown or congested
// connections are skipped; the next snapshot supersedes whatever they missed.
func (h *Hub) Deliver(ob game.Outbox) {
	if len(ob) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, n := range ob {
		client, ok := h.Clients[n.ConnectionID]
		if !ok {
			continue
		}
		data, err := encode(n.Type, n.Payload)
		if err != nil {
			log.Error().Err(err).Str("module", "handlers.hub").Str("type", n.Type).Msg("marshal notification")
			continue
		}
		if err := client.TrySend(data); err != nil {
			log.Warn().Err(err).Str("module", "handlers.hub").Str("conn", client.ID).Str("type", n.Type).Msg("dropped notification")
		}
	}
}

func encode(eventType string, payload interface{}) ([]byte, error) {
	return json.Marshal(models.WSMessage{Type: eventType, Payload: payload})
}

// HandleWebSocket upgrades the connection. With roomCode and playerId (query
// or cookie session) the connection immediately rejoins that player.
func HandleWebSocket(srv *Server) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return srv.originAllowed(r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		roomCode := c.Query("roomCode")
		playerID := c.Query("playerId")
		if roomCode == "" || playerID == "" {
			sess := sessions.Default(c)
			if v, ok := sess.Get(sessionRoomKey).(string); ok && roomCode == "" {
				roomCode = v
			}
			if v, ok := sess.Get(sessionPlayerKey).(string); ok && playerID == "" {
				playerID = v
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "handlers.ws").Msg("websocket upgrade")
			return
		}

		client := &Client{
			ID:   uuid.NewString(),
			Conn: conn,
			send: make(chan []byte, srv.Config.SendBuffer),
		}
		srv.Hub.Register(client)
		log.Info().Str("module", "handlers.ws").Str("conn", client.ID).Msg("new websocket connection")

		if roomCode != "" && playerID != "" {
			srv.rejoin(client, roomCode, playerID)
		}

		go client.WritePump(srv.Config.PingPeriod)
		go client.ReadPump(srv)
	}
}

func (c *Client) ReadPump(srv *Server) {
	defer func() {
		srv.disconnect(c)
		srv.Hub.Unregister(c)
		c.Conn.Close()
	}()

	pongWait := srv.Config.PingPeriod * 10 / 9
	c.Conn.SetReadLimit(srv.Config.ReadLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "handlers.ws").Str("conn", c.ID).Msg("websocket read")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug().Err(err).Str("module", "handlers.ws").Str("conn", c.ID).Msg("bad json")
			srv.sendError(c, game.ErrBadPayload)
			continue
		}
		srv.handleMessage(c, &msg)
	}
}

func (c *Client) WritePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("module", "handlers.ws").Str("conn", c.ID).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
