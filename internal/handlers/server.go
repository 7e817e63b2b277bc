package handlers

import (
	"github.com/heist-game/backend/internal/config"
	"github.com/heist-game/backend/internal/game"
	"github.com/heist-game/backend/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	sessionRoomKey   = "room"
	sessionPlayerKey = "player"
)

// Server wires the room registry to the websocket hub
type Server struct {
	Rooms  *game.GameManager
	Hub    *Hub
	Config *config.Config
}

func NewServer(cfg *config.Config, rooms *game.GameManager, hub *Hub) *Server {
	return &Server{Rooms: rooms, Hub: hub, Config: cfg}
}

func (s *Server) originAllowed(origin string) bool {
	allowed := s.Config.AllowedOrigin
	return allowed == "" || allowed == "*" || origin == "" || origin == allowed
}

func (s *Server) sendError(c *Client, err error) {
	data, mErr := encode(models.EventError, errorPayload(err))
	if mErr != nil {
		log.Error().Err(mErr).Str("module", "handlers.ws").Msg("marshal error")
		return
	}
	_ = c.TrySend(data)
}

// errorPayload is the body of an error notification
func errorPayload(err error) map[string]string {
	return map[string]string{
		"code":  string(game.KindOf(err)),
		"error": err.Error(),
	}
}

// disconnect releases the connection's seat, if it has one
func (s *Server) disconnect(c *Client) {
	roomCode, _ := c.Seated()
	if roomCode == "" {
		return
	}
	c.Seat("", "")
	s.Hub.Deliver(s.Rooms.Disconnect(roomCode, c.ID))
}

// reseat moves c to a new seat, releasing the old one only after the new
// seat was granted. Inside one room a connection can hold a single player,
// so there the old seat goes first.
func (s *Server) reseat(c *Client, room *game.Session, take func() (string, game.Outbox, error)) error {
	current, _ := c.Seated()
	if current == room.Code() {
		s.disconnect(c)
	}
	playerID, ob, err := take()
	if err != nil {
		return err
	}
	if current != "" && current != room.Code() {
		s.Hub.Deliver(s.Rooms.Disconnect(current, c.ID))
	}
	c.Seat(room.Code(), playerID)
	s.Hub.Deliver(ob)
	return nil
}

// rejoin seats c as an existing player
func (s *Server) rejoin(c *Client, roomCode, playerID string) {
	room, err := s.Rooms.Find(roomCode)
	if err != nil {
		s.sendError(c, err)
		return
	}
	if p, ok := room.Player(playerID); !ok {
		s.sendError(c, game.ErrUnknownPlayer)
		return
	} else if p.Role == "" && room.Phase() != models.PhaseLobby {
		s.sendError(c, game.ErrGameAlreadyStarted)
		return
	}

	current, seated := c.Seated()
	if current == room.Code() && seated == playerID {
		// already this player's connection: resend the state
		ob, err := room.Rejoin(c.ID, playerID)
		if err != nil {
			s.sendError(c, err)
			return
		}
		s.Hub.Deliver(ob)
		return
	}
	err = s.reseat(c, room, func() (string, game.Outbox, error) {
		ob, err := room.Rejoin(c.ID, playerID)
		return playerID, ob, err
	})
	if err != nil {
		s.sendError(c, err)
	}
}
