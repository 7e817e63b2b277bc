package handlers

import (
	"encoding/json"

	"github.com/heist-game/backend/internal/game"
	"github.com/heist-game/backend/internal/models"
	"github.com/rs/zerolog/log"
)

// inboundMessage is a client action; Payload is decoded per action type
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

type createPayload struct {
	PlayerName string `json:"playerName"`
}

type joinPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type rejoinPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type profilePayload struct {
	RoomCode string         `json:"roomCode"`
	Profile  models.Profile `json:"profile"`
}

type itemPayload struct {
	RoomCode string   `json:"roomCode"`
	Item     string   `json:"item"`
	Clues    []string `json:"clues"`
}

type nightPayload struct {
	RoomCode string  `json:"roomCode"`
	TargetID *string `json:"targetId"`
}

type votePayload struct {
	RoomCode string `json:"roomCode"`
	TargetID string `json:"targetId"`
}

// roomAction is a room-scoped action that only needs the caller's connection
type roomAction func(room *game.Session, connID string) (game.Outbox, error)

var simpleActions = map[string]roomAction{
	models.ActionStartGame:    (*game.Session).Start,
	models.ActionEndDay:       (*game.Session).EndDay,
	models.ActionStartVote:    (*game.Session).StartVote,
	models.ActionPlayAgain:    (*game.Session).PlayAgain,
	models.ActionForceAdvance: (*game.Session).ForceAdvance,
}

func (s *Server) handleMessage(c *Client, msg *inboundMessage) {
	logger := log.With().Str("module", "handlers.ws").Str("conn", c.ID).Str("type", msg.Type).Logger()

	var err error
	switch msg.Type {
	case models.ActionCreateRoom:
		err = s.handleCreate(c, msg.Payload)
	case models.ActionJoinRoom:
		err = s.handleJoin(c, msg.Payload)
	case models.ActionRejoinRoom:
		var p rejoinPayload
		if err = decode(msg.Payload, &p); err == nil {
			s.rejoin(c, p.RoomCode, p.PlayerID)
		}
	case models.ActionUpdateProfile:
		var p profilePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.inRoom(c, p.RoomCode, func(room *game.Session) (game.Outbox, error) {
				return room.UpdateProfile(c.ID, p.Profile)
			})
		}
	case models.ActionSubmitStolenItem:
		var p itemPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.inRoom(c, p.RoomCode, func(room *game.Session) (game.Outbox, error) {
				return room.SubmitStolenItem(c.ID, p.Item, p.Clues)
			})
		}
	case models.ActionSubmitNight:
		var p nightPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.inRoom(c, p.RoomCode, func(room *game.Session) (game.Outbox, error) {
				return room.SubmitNightAction(c.ID, p.TargetID)
			})
		}
	case models.ActionSubmitVote:
		var p votePayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.inRoom(c, p.RoomCode, func(room *game.Session) (game.Outbox, error) {
				return room.SubmitVote(c.ID, p.TargetID)
			})
		}
	default:
		action, ok := simpleActions[msg.Type]
		if !ok {
			logger.Warn().Msg("unknown action")
			err = game.ErrBadPayload
			break
		}
		var p roomPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = s.inRoom(c, p.RoomCode, func(room *game.Session) (game.Outbox, error) {
				return action(room, c.ID)
			})
		}
	}

	if err != nil {
		logger.Debug().Err(err).Msg("action rejected")
		s.sendError(c, err)
	}
}

func (s *Server) handleCreate(c *Client, raw json.RawMessage) error {
	var p createPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	previous, _ := c.Seated()
	room, playerID, ob, err := s.Rooms.CreateRoom(c.ID, p.PlayerName)
	if err != nil {
		return err
	}
	if previous != "" {
		s.Hub.Deliver(s.Rooms.Disconnect(previous, c.ID))
	}
	c.Seat(room.Code(), playerID)
	s.Hub.Deliver(ob)
	return nil
}

func (s *Server) handleJoin(c *Client, raw json.RawMessage) error {
	var p joinPayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	room, err := s.Rooms.Find(p.RoomCode)
	if err != nil {
		return err
	}
	if current, _ := c.Seated(); current == room.Code() {
		return game.ErrAlreadySeated
	}
	return s.reseat(c, room, func() (string, game.Outbox, error) {
		return room.Join(c.ID, p.PlayerName)
	})
}

// inRoom resolves the room and delivers what fn produced
func (s *Server) inRoom(c *Client, roomCode string, fn func(room *game.Session) (game.Outbox, error)) error {
	room, err := s.Rooms.Find(roomCode)
	if err != nil {
		return err
	}
	ob, err := fn(room)
	if err != nil {
		return err
	}
	s.Hub.Deliver(ob)
	return nil
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return game.ErrBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return game.ErrBadPayload
	}
	return nil
}
