package models

// GamePhase represents the current phase of the game
type GamePhase string

const (
	PhaseLobby GamePhase = "lobby"
	PhaseSetup GamePhase = "setup"
	PhaseDay   GamePhase = "day"
	PhaseNight GamePhase = "night"
	PhaseVote  GamePhase = "vote"
	PhaseEnd   GamePhase = "end"
)

// Team is the side a role plays for
type Team string

const (
	TeamGood Team = "Good"
	TeamBad  Team = "Bad"
)

// Label is the human-readable winner label used in results
func (t Team) Label() string {
	if t == "" {
		return ""
	}
	return string(t) + " Team"
}

// Profile is the flavor text a player fills in before the game starts.
// Thieves and Fencers build their lies from it.
type Profile struct {
	Occupation string `json:"occupation"`
	Hobby      string `json:"hobby"`
	Shoes      string `json:"shoes"`
	Clothing   string `json:"clothing"`
}

// Complete reports whether every field has been filled in
func (p *Profile) Complete() bool {
	return p != nil && p.Occupation != "" && p.Hobby != "" && p.Shoes != "" && p.Clothing != ""
}

// Player represents a player in a room
type Player struct {
	ID           string   `json:"id"`
	ConnectionID string   `json:"-"`
	Name         string   `json:"name"`
	Profile      *Profile `json:"profile"`
	Role         Role     `json:"role,omitempty"` // Hidden from other players
	Team         Team     `json:"team,omitempty"`
	IsAlive      bool     `json:"isAlive"`
	Connected    bool     `json:"connected"`
}

// Active players count toward action and vote quotas
func (p *Player) Active() bool {
	return p.Connected && p.IsAlive
}

// NightAction is one player's submission for the current night.
// A nil TargetID means the player laid low.
type NightAction struct {
	ActorID      string  `json:"actorId"`
	ActorRole    Role    `json:"actorRole"`
	TargetID     *string `json:"targetId"`
	GeneratedLie string  `json:"generatedLie,omitempty"`
}

// HasTarget reports whether the action picked someone
func (a NightAction) HasTarget() bool {
	return a.TargetID != nil && *a.TargetID != ""
}

// VoteResult is the outcome of the final vote
type VoteResult struct {
	Counts    map[string]int `json:"counts"`
	VotedOut  string         `json:"votedOut,omitempty"`
	IsTie     bool           `json:"isTie"`
	Winner    Team           `json:"winner"`
	MaxVotes  int            `json:"maxVotes"`
	Abstained int            `json:"abstained"`
}

// PlayerReveal is one player's true identity shown at the end of the game
type PlayerReveal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
	Team Team   `json:"team"`
}

// GameResult is broadcast when the vote finishes
type GameResult struct {
	Winner         string         `json:"winner"`
	WinningTeam    Team           `json:"winningTeam"`
	IsTie          bool           `json:"isTie"`
	VotedOutPlayer *PlayerReveal  `json:"votedOutPlayer"`
	VoteCounts     map[string]int `json:"voteCounts"`
	Abstained      int            `json:"abstained"`
	StolenItem     string         `json:"stolenItem"`
	Clues          []string       `json:"clues"`
	AllClues       string         `json:"allClues"`
	Dossier        []string       `json:"dossier"`
	Players        []PlayerReveal `json:"players"`
}

// PlayerView is a player as seen by one particular recipient
type PlayerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Profile   *Profile `json:"profile"`
	Role      Role     `json:"role,omitempty"`
	Team      Team     `json:"team,omitempty"`
	IsAlive   bool     `json:"isAlive"`
	Connected bool     `json:"connected"`
	IsHost    bool     `json:"isHost"`
	Submitted bool     `json:"submitted"`
}

// SessionSnapshot is the full room state personalised for one recipient.
// Version grows with every broadcast; clients drop snapshots older than the
// last one they applied.
type SessionSnapshot struct {
	RoomCode      string       `json:"roomCode"`
	Version       uint64       `json:"version"`
	Phase         GamePhase    `json:"phase"`
	Day           int          `json:"day"`
	HostID        string       `json:"hostId"`
	YouID         string       `json:"youId,omitempty"`
	Players       []PlayerView `json:"players"`
	StolenItem    string       `json:"stolenItem,omitempty"`
	MorningReport []string     `json:"morningReport"`
	Dossier       []string     `json:"dossier"`
	Result        *GameResult  `json:"result,omitempty"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Inbound actions
const (
	ActionCreateRoom       = "createRoom"
	ActionJoinRoom         = "joinRoom"
	ActionRejoinRoom       = "rejoinRoom"
	ActionUpdateProfile    = "updateProfile"
	ActionStartGame        = "startGame"
	ActionSubmitStolenItem = "submitStolenItem"
	ActionSubmitNight      = "submitNightAction"
	ActionEndDay           = "endDay"
	ActionStartVote        = "startVote"
	ActionSubmitVote       = "submitVote"
	ActionPlayAgain        = "playAgain"
	ActionForceAdvance     = "forceAdvance"
)

// Outbound events
const (
	EventRoomCreated     = "room_created"
	EventRoomJoined      = "room_joined"
	EventRoomRejoined    = "room_rejoined"
	EventSessionState    = "session_state"
	EventRoleAssigned    = "role_assigned"
	EventPromptCollector = "prompt_collector"
	EventPrivateMessage  = "private_message"
	EventActionConfirmed = "action_confirmed"
	EventVoteConfirmed   = "vote_confirmed"
	EventGameOver        = "game_over"
	EventGameReset       = "game_reset"
	EventSuperseded      = "superseded"
	EventError           = "error"
)
