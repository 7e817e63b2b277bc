package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/heist-game/backend/internal/game"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 320

type CreateRoomRequest struct {
	PlayerName string `json:"playerName" binding:"required"`
}

type JoinRoomRequest struct {
	PlayerName string `json:"playerName" binding:"required"`
}

// CreateRoom creates a new game room and reserves the host's seat. The
// caller then opens /ws to take the seat.
func CreateRoom(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": game.KindBadPayload})
			return
		}

		room := srv.Rooms.Create()
		playerID, ob, err := room.AddPlayer(req.PlayerName)
		if err != nil {
			srv.Rooms.Remove(room.Code())
			respondError(c, err)
			return
		}
		srv.Hub.Deliver(ob)
		remember(c, room.Code(), playerID)

		c.JSON(http.StatusCreated, gin.H{
			"room":     room.Snapshot(playerID),
			"roomCode": room.Code(),
			"playerId": playerID,
		})
	}
}

// GetRoom retrieves room information without any hidden roles
func GetRoom(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := srv.Rooms.Find(c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room.Snapshot("")})
	}
}

// JoinRoom reserves a seat in a lobby
func JoinRoom(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req JoinRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": game.KindBadPayload})
			return
		}

		room, err := srv.Rooms.Find(c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		playerID, ob, err := room.AddPlayer(req.PlayerName)
		if err != nil {
			respondError(c, err)
			return
		}
		srv.Hub.Deliver(ob)
		remember(c, room.Code(), playerID)

		c.JSON(http.StatusOK, gin.H{
			"room":     room.Snapshot(playerID),
			"roomCode": room.Code(),
			"playerId": playerID,
		})
	}
}

// RoomQR renders the room's join link as a PNG
func RoomQR(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := srv.Rooms.Find(c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}

		png, err := qrcode.Encode(joinURL(srv.Config.PublicURL, c.Request, room.Code()), qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("module", "handlers.http").Str("room", room.Code()).Msg("qr generation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed", "code": game.KindInternal})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}

// CurrentSession reports the room and player remembered in the cookie
// session so a refreshed page can rejoin.
func CurrentSession(srv *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		roomCode, _ := sess.Get(sessionRoomKey).(string)
		playerID, _ := sess.Get(sessionPlayerKey).(string)

		if roomCode == "" || playerID == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no remembered room", "code": game.KindRoomNotFound})
			return
		}
		room, err := srv.Rooms.Find(roomCode)
		if err != nil {
			respondError(c, err)
			return
		}
		if _, ok := room.Player(playerID); !ok {
			respondError(c, game.ErrUnknownPlayer)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomCode": room.Code(), "playerId": playerID})
	}
}

func remember(c *gin.Context, roomCode, playerID string) {
	sess := sessions.Default(c)
	sess.Set(sessionRoomKey, roomCode)
	sess.Set(sessionPlayerKey, playerID)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "handlers.http").Msg("save cookie session")
	}
}

func joinURL(publicURL string, r *http.Request, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(code)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	var ge *game.GameError
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrUnknownPlayer):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrGameAlreadyStarted), errors.Is(err, game.ErrRoomFull):
		status = http.StatusConflict
	case !errors.As(err, &ge):
		status = http.StatusInternalServerError
	}
	c.JSON(status, errorPayload(err))
}
