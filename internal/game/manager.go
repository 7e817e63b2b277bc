package game

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/heist-game/backend/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// RoomCodeLength is the number of characters in a room code
	RoomCodeLength = 5
	// RoomCodeChars leaves out characters that are easy to misread
	RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GameManager is the room registry: it creates, finds and removes sessions
// by room code.
type GameManager struct {
	rooms map[string]*Session
	mu    sync.RWMutex

	opts    Options
	newCode func() string
	seed    func() int64
}

// ManagerOption customises a GameManager
type ManagerOption func(*GameManager)

// WithSessionOptions sets the options every new session starts with
func WithSessionOptions(opts Options) ManagerOption {
	return func(gm *GameManager) { gm.opts = opts }
}

// WithCodeGenerator replaces the random room code source
func WithCodeGenerator(gen func() string) ManagerOption {
	return func(gm *GameManager) { gm.newCode = gen }
}

// WithSeed makes every session's randomness derive from seed
func WithSeed(seed func() int64) ManagerOption {
	return func(gm *GameManager) { gm.seed = seed }
}

// NewGameManager creates a new game manager
func NewGameManager(options ...ManagerOption) *GameManager {
	gm := &GameManager{
		rooms:   make(map[string]*Session),
		newCode: generateRoomCode,
		seed:    func() int64 { return time.Now().UnixNano() },
	}
	for _, o := range options {
		o(gm)
	}
	return gm
}

// Create makes an empty lobby under a fresh code
func (gm *GameManager) Create() *Session {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	code := gm.newCode()
	for gm.rooms[code] != nil {
		code = gm.newCode()
	}

	opts := gm.opts
	opts.Rand = rand.New(rand.NewSource(gm.seed()))
	room := NewSession(code, opts)
	gm.rooms[code] = room
	log.Info().Str("module", "game.registry").Str("room", code).Int("rooms", len(gm.rooms)).Msg("room created")
	return room
}

// CreateRoom makes a room and seats its creator as host on connID
func (gm *GameManager) CreateRoom(connID, playerName string) (*Session, string, Outbox, error) {
	if err := validName(playerName); err != nil {
		return nil, "", nil, err
	}
	room := gm.Create()
	playerID, ob, err := room.join(connID, playerName, models.EventRoomCreated)
	if err != nil {
		gm.Remove(room.Code())
		return nil, "", nil, err
	}
	return room, playerID, ob, nil
}

// Find retrieves a room by code, case-insensitively
func (gm *GameManager) Find(code string) (*Session, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	room, exists := gm.rooms[NormalizeCode(code)]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove deletes a room and stops its timers
func (gm *GameManager) Remove(code string) {
	gm.mu.Lock()
	code = NormalizeCode(code)
	room, exists := gm.rooms[code]
	delete(gm.rooms, code)
	remaining := len(gm.rooms)
	gm.mu.Unlock()

	if exists {
		room.Close()
		log.Info().Str("module", "game.registry").Str("room", code).Int("rooms", remaining).Msg("room removed")
	}
}

// Disconnect marks connID gone in the room and destroys the room once nobody
// is left connected.
func (gm *GameManager) Disconnect(code, connID string) Outbox {
	room, err := gm.Find(code)
	if err != nil {
		return nil
	}
	ob, empty := room.Disconnect(connID)
	if empty {
		gm.Remove(code)
	}
	return ob
}

// Count returns the number of live rooms
func (gm *GameManager) Count() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.rooms)
}

// Sweep removes rooms that have had no connected player for ttl. Rooms
// reserved over HTTP whose players never opened a socket end up here.
func (gm *GameManager) Sweep(ttl time.Duration, now time.Time) int {
	gm.mu.RLock()
	var stale []string
	for code, room := range gm.rooms {
		if room.Idle(ttl, now) {
			stale = append(stale, code)
		}
	}
	gm.mu.RUnlock()

	for _, code := range stale {
		gm.Remove(code)
	}
	return len(stale)
}

// Run sweeps idle rooms every interval until ctx is done
func (gm *GameManager) Run(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := gm.Sweep(ttl, now); n > 0 {
				log.Info().Str("module", "game.registry").Int("removed", n).Msg("swept idle rooms")
			}
		}
	}
}

// NormalizeCode upper-cases and trims a user-typed code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLen {
		return ErrInvalidName
	}
	return nil
}

// generateRoomCode generates a random room code
func generateRoomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(RoomCodeChars))))
		if err != nil {
			code[i] = RoomCodeChars[rand.Intn(len(RoomCodeChars))]
			continue
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return string(code)
}
