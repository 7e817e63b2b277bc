package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/heist-game/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxNameLen bounds player names in runes
const MaxNameLen = 24

// Notification is one outbound message addressed to a single connection
type Notification struct {
	ConnectionID string
	Type         string
	Payload      interface{}
}

// Outbox collects what a committed mutation wants delivered
type Outbox []Notification

// Options configures a Session
type Options struct {
	MaxPlayers   int
	PhaseTimeout time.Duration
	Rand         *rand.Rand
	// OnTimeout delivers notifications produced when a phase deadline fires
	OnTimeout func(Outbox)
}

// Session is the authority for one room. Every exported method runs under
// the session lock, so handlers for a room never interleave.
type Session struct {
	mu sync.Mutex

	code          string
	phase         models.GamePhase
	day           int
	players       map[string]*models.Player
	order         []string
	hostID        string
	nightActions  []models.NightAction
	votes         map[string]string
	stolenItem    string
	clues         []string
	morningReport []string
	dossier       []string
	result        *models.GameResult
	conns         *ConnectionManager

	rng          *rand.Rand
	maxPlayers   int
	phaseTimeout time.Duration
	onTimeout    func(Outbox)
	epoch        uint64
	version      uint64
	timer        *time.Timer
	closed       bool
	idleSince    time.Time

	log zerolog.Logger
}

// NewSession creates an empty session in the lobby
func NewSession(code string, opts Options) *Session {
	if opts.MaxPlayers <= 0 || opts.MaxPlayers > MaxPlayers {
		opts.MaxPlayers = MaxPlayers
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{
		code:         code,
		phase:        models.PhaseLobby,
		day:          1,
		players:      make(map[string]*models.Player),
		votes:        make(map[string]string),
		conns:        NewConnectionManager(),
		rng:          opts.Rand,
		maxPlayers:   opts.MaxPlayers,
		phaseTimeout: opts.PhaseTimeout,
		onTimeout:    opts.OnTimeout,
		idleSince:    time.Now(),
		log:          log.With().Str("module", "game.session").Str("room", code).Logger(),
	}
}

// Code returns the room code
func (s *Session) Code() string {
	return s.code
}

// Phase returns the current phase
func (s *Session) Phase() models.GamePhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Day returns the day counter
func (s *Session) Day() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// HostID returns the current host
func (s *Session) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

// Player returns a copy of a player by stable id
func (s *Session) Player(id string) (models.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return models.Player{}, false
	}
	cp := *p
	if p.Profile != nil {
		prof := *p.Profile
		cp.Profile = &prof
	}
	return cp, true
}

// ConnectedCount returns how many players currently hold a connection
func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCount()
}

// Idle reports whether the session has had no connected player for at least ttl
func (s *Session) Idle(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCount() == 0 && now.Sub(s.idleSince) >= ttl
}

// Snapshot returns the state as seen by viewerID. An empty viewer sees no roles
// until the game ends.
func (s *Session) Snapshot(viewerID string) models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(viewerID)
}

// Close stops any pending deadline and rejects further actions
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopDeadline()
}

// Join adds a connected player to the lobby
func (s *Session) Join(connID, name string) (string, Outbox, error) {
	return s.join(connID, name, models.EventRoomJoined)
}

func (s *Session) join(connID, name, ack string) (string, Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.addPlayer(name)
	if err != nil {
		return "", nil, err
	}
	s.conns.Attach(p, connID)
	s.claimHost(p)
	s.log.Info().Str("player", p.ID).Str("name", p.Name).Msg("player joined")

	var ob Outbox
	ob.to(connID, ack, s.snapshot(p.ID))
	s.broadcastState(&ob)
	return p.ID, ob, nil
}

// AddPlayer registers a player that will attach a connection later via Rejoin
func (s *Session) AddPlayer(name string) (string, Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.addPlayer(name)
	if err != nil {
		return "", nil, err
	}
	if s.hostID == "" {
		s.hostID = p.ID
	}
	s.log.Info().Str("player", p.ID).Str("name", p.Name).Msg("player reserved")

	var ob Outbox
	s.broadcastState(&ob)
	return p.ID, ob, nil
}

func (s *Session) addPlayer(name string) (*models.Player, error) {
	if s.closed {
		return nil, ErrRoomNotFound
	}
	if s.phase != models.PhaseLobby {
		return nil, ErrGameAlreadyStarted
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return nil, ErrInvalidName
	}
	if len(s.players) >= s.maxPlayers {
		return nil, ErrRoomFull
	}
	p := &models.Player{
		ID:      uuid.NewString(),
		Name:    name,
		IsAlive: true,
	}
	s.players[p.ID] = p
	s.order = append(s.order, p.ID)
	return p, nil
}

// Rejoin binds a new connection to a previously issued player id
func (s *Session) Rejoin(connID, playerID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrRoomNotFound
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	// players who missed the deal sit the game out until the next lobby
	if p.Role == "" && s.phase != models.PhaseLobby {
		return nil, ErrGameAlreadyStarted
	}

	var ob Outbox
	if old := s.conns.Attach(p, connID); old != "" {
		ob.to(old, models.EventSuperseded, H{"reason": "signed in from another connection"})
	}
	s.claimHost(p)
	s.log.Info().Str("player", p.ID).Str("conn", connID).Msg("player reconnected")

	ob.to(connID, models.EventRoomRejoined, s.snapshot(p.ID))
	if p.Role == models.RoleCollector && s.phase == models.PhaseSetup {
		ob.to(connID, models.EventPromptCollector, nil)
	}
	s.broadcastState(&ob)
	return ob, nil
}

// Disconnect marks the connection's player as gone. empty is true when no
// connected player remains and the session should be destroyed.
func (s *Session) Disconnect(connID string) (ob Outbox, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false
	}
	p, ok := s.conns.Detach(connID, s.players)
	if !ok {
		return nil, false
	}
	s.log.Info().Str("player", p.ID).Str("conn", connID).Msg("player disconnected")

	if s.connectedCount() == 0 {
		s.closed = true
		s.idleSince = time.Now()
		s.stopDeadline()
		return nil, true
	}
	if s.hostID == p.ID {
		s.hostID = PickHost(s.order, s.players)
		s.log.Info().Str("host", s.hostID).Msg("host reassigned")
	}

	switch s.phase {
	case models.PhaseNight:
		if s.nightQuotaMet() {
			s.resolveNight(&ob)
			return ob, false
		}
	case models.PhaseVote:
		if s.voteQuotaMet() {
			s.endGame(&ob)
			return ob, false
		}
	}
	s.broadcastState(&ob)
	return ob, false
}

// UpdateProfile stores the caller's flavor profile while in the lobby
func (s *Session) UpdateProfile(connID string, profile models.Profile) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseLobby {
		return nil, ErrWrongPhase
	}
	profile = models.Profile{
		Occupation: strings.TrimSpace(profile.Occupation),
		Hobby:      strings.TrimSpace(profile.Hobby),
		Shoes:      strings.TrimSpace(profile.Shoes),
		Clothing:   strings.TrimSpace(profile.Clothing),
	}
	if !profile.Complete() {
		return nil, ErrIncompleteProfile
	}
	p.Profile = &profile

	var ob Outbox
	s.broadcastState(&ob)
	return ob, nil
}

// Start deals roles to the connected players and moves to setup
func (s *Session) Start(connID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseLobby {
		return nil, ErrWrongPhase
	}
	if p.ID != s.hostID {
		return nil, ErrNotHost
	}
	active := s.activePlayers()
	if len(active) < MinPlayers {
		return nil, ErrInsufficientPlayers
	}
	for _, ap := range active {
		if !ap.Profile.Complete() {
			return nil, ErrIncompleteProfile
		}
	}

	for _, rp := range s.players {
		rp.Role, rp.Team = "", ""
	}
	AssignRoles(active, s.rng)
	s.phase = models.PhaseSetup
	s.day = 1
	s.log.Info().Int("players", len(active)).Msg("game started")

	var ob Outbox
	for _, ap := range active {
		ob.to(ap.ConnectionID, models.EventRoleAssigned, H{"role": ap.Role, "team": ap.Team})
		if ap.Role == models.RoleCollector {
			ob.to(ap.ConnectionID, models.EventPromptCollector, nil)
		}
	}
	s.broadcastState(&ob)
	return ob, nil
}

// SubmitStolenItem records the Collector's item and clues and opens day one
func (s *Session) SubmitStolenItem(connID, item string, clues []string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseSetup {
		return nil, ErrWrongPhase
	}
	if p.Role != models.RoleCollector {
		return nil, ErrRoleMismatch
	}
	item = strings.TrimSpace(item)
	if item == "" || len(clues) != 3 {
		return nil, ErrIncompleteItemSubmission
	}
	cleaned := make([]string, len(clues))
	for i, c := range clues {
		cleaned[i] = strings.TrimSpace(c)
		if cleaned[i] == "" {
			return nil, ErrIncompleteItemSubmission
		}
	}

	s.stolenItem = item
	s.clues = cleaned
	first := FirstMorningLine(s.clues)
	s.morningReport = []string{first}
	s.dossier = append(s.dossier, first)
	s.enterPhase(models.PhaseDay)
	s.log.Info().Int("day", s.day).Msg("day started")

	var ob Outbox
	s.broadcastState(&ob)
	return ob, nil
}

// EndDay moves from day to night
func (s *Session) EndDay(connID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseDay {
		return nil, ErrWrongPhase
	}
	if p.ID != s.hostID && s.day <= FinalDay {
		return nil, ErrNotHost
	}
	s.morningReport = nil
	s.enterPhase(models.PhaseNight)
	s.log.Info().Int("day", s.day).Msg("night started")

	var ob Outbox
	if s.nightQuotaMet() {
		s.resolveNight(&ob)
		return ob, nil
	}
	s.broadcastState(&ob)
	return ob, nil
}

// SubmitNightAction records the caller's move for tonight. A nil target lays low.
func (s *Session) SubmitNightAction(connID string, targetID *string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseNight {
		return nil, ErrWrongPhase
	}
	if !p.Role.HasNightAction() {
		return nil, ErrRoleMismatch
	}
	if s.submittedNight(p.ID) {
		return nil, ErrDuplicateSubmission
	}

	action := models.NightAction{ActorID: p.ID, ActorRole: p.Role}
	if targetID != nil && *targetID != "" {
		target, ok := s.players[*targetID]
		if !ok || target.Role == "" || !target.Profile.Complete() {
			return nil, ErrInvalidTarget
		}
		id := target.ID
		action.TargetID = &id
		action.GeneratedLie = GenerateLie(p.Role, target)
	}
	s.nightActions = append(s.nightActions, action)
	s.log.Debug().Str("player", p.ID).Bool("target", action.HasTarget()).Msg("night action recorded")

	var ob Outbox
	ob.to(connID, models.EventActionConfirmed, nil)
	if s.nightQuotaMet() {
		s.resolveNight(&ob)
		return ob, nil
	}
	s.broadcastState(&ob)
	return ob, nil
}

// StartVote opens the final vote from day four onward
func (s *Session) StartVote(connID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseDay {
		return nil, ErrWrongPhase
	}
	if p.ID != s.hostID {
		return nil, ErrNotHost
	}
	if s.day < FinalDay {
		return nil, ErrWrongPhase
	}

	var ob Outbox
	s.openVote(&ob)
	return ob, nil
}

// SubmitVote records the caller's vote
func (s *Session) SubmitVote(connID, targetID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseVote {
		return nil, ErrWrongPhase
	}
	if _, voted := s.votes[p.ID]; voted {
		return nil, ErrDuplicateSubmission
	}
	if target, ok := s.players[targetID]; !ok || target.Role == "" {
		return nil, ErrInvalidTarget
	}
	s.votes[p.ID] = targetID
	s.log.Debug().Str("player", p.ID).Msg("vote recorded")

	var ob Outbox
	ob.to(connID, models.EventVoteConfirmed, nil)
	if s.voteQuotaMet() {
		s.endGame(&ob)
		return ob, nil
	}
	s.broadcastState(&ob)
	return ob, nil
}

// ForceAdvance resolves the current night or vote without waiting for the
// players who have not acted yet.
func (s *Session) ForceAdvance(connID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if p.ID != s.hostID {
		return nil, ErrNotHost
	}

	var ob Outbox
	switch s.phase {
	case models.PhaseNight:
		s.log.Info().Int("day", s.day).Msg("night force-advanced by host")
		s.resolveNight(&ob)
	case models.PhaseVote:
		s.log.Info().Msg("vote force-advanced by host")
		s.endGame(&ob)
	default:
		return nil, ErrWrongPhase
	}
	return ob, nil
}

// PlayAgain returns a finished game to the lobby, keeping the roster
func (s *Session) PlayAgain(connID string) (Outbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.caller(connID)
	if err != nil {
		return nil, err
	}
	if s.phase != models.PhaseEnd {
		return nil, ErrWrongPhase
	}
	if p.ID != s.hostID {
		return nil, ErrNotHost
	}

	for _, rp := range s.players {
		rp.Role, rp.Team = "", ""
	}
	s.day = 1
	s.nightActions = nil
	s.votes = make(map[string]string)
	s.stolenItem = ""
	s.clues = nil
	s.morningReport = nil
	s.dossier = nil
	s.result = nil
	s.enterPhase(models.PhaseLobby)
	s.log.Info().Msg("room reset")

	var ob Outbox
	s.broadcastSnapshot(&ob, models.EventGameReset)
	return ob, nil
}

func (s *Session) caller(connID string) (*models.Player, error) {
	if s.closed {
		return nil, ErrRoomNotFound
	}
	id, ok := s.conns.Resolve(connID)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	p, ok := s.players[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return p, nil
}

// claimHost hands the host seat to p when nobody connected holds it
func (s *Session) claimHost(p *models.Player) {
	if host, ok := s.players[s.hostID]; ok && host.Connected {
		return
	}
	if s.hostID != p.ID {
		s.log.Info().Str("host", p.ID).Msg("host reassigned")
	}
	s.hostID = p.ID
}

func (s *Session) connectedCount() int {
	n := 0
	for _, p := range s.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// activePlayers returns connected, alive players in roster order
func (s *Session) activePlayers() []*models.Player {
	out := make([]*models.Player, 0, len(s.order))
	for _, id := range s.order {
		if p := s.players[id]; p.Active() {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) submittedNight(playerID string) bool {
	for _, a := range s.nightActions {
		if a.ActorID == playerID {
			return true
		}
	}
	return false
}

// nightQuotaMet reports whether every active player with a night move has acted
func (s *Session) nightQuotaMet() bool {
	for _, p := range s.activePlayers() {
		if p.Role.HasNightAction() && !s.submittedNight(p.ID) {
			return false
		}
	}
	return true
}

func (s *Session) voteQuotaMet() bool {
	for _, p := range s.activePlayers() {
		if _, ok := s.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) resolveNight(ob *Outbox) {
	out := ResolveNight(s.day, s.clues, s.nightActions, s.players, s.rng)
	for _, pm := range out.Private {
		if p := s.players[pm.PlayerID]; p != nil && p.Connected {
			ob.to(p.ConnectionID, models.EventPrivateMessage, H{"message": pm.Text})
		}
	}
	s.day = out.NextDay
	s.nightActions = nil
	s.votes = make(map[string]string)
	s.log.Info().Int("day", s.day).Bool("vote", out.StartVote).Msg("night resolved")

	if out.StartVote {
		s.openVote(ob)
		return
	}
	s.morningReport = out.MorningReport
	s.dossier = append(s.dossier, out.MorningReport...)
	s.enterPhase(models.PhaseDay)
	s.broadcastState(ob)
}

func (s *Session) openVote(ob *Outbox) {
	s.votes = make(map[string]string)
	s.morningReport = nil
	s.enterPhase(models.PhaseVote)
	s.log.Info().Msg("vote started")
	if s.voteQuotaMet() {
		s.endGame(ob)
		return
	}
	s.broadcastState(ob)
}

func (s *Session) endGame(ob *Outbox) {
	tally := TallyVotes(s.votes, func(id string) models.Team {
		if p := s.players[id]; p != nil {
			return p.Team
		}
		return ""
	})
	abstained := 0
	for _, p := range s.activePlayers() {
		if _, ok := s.votes[p.ID]; !ok {
			abstained++
		}
	}
	tally.Abstained = abstained

	result := &models.GameResult{
		Winner:      tally.Winner.Label(),
		WinningTeam: tally.Winner,
		IsTie:       tally.IsTie,
		VoteCounts:  tally.Counts,
		Abstained:   tally.Abstained,
		StolenItem:  s.stolenItem,
		Clues:       append([]string(nil), s.clues...),
		AllClues:    "The stolen item was: " + s.stolenItem + ". The true clues were: " + strings.Join(s.clues, ", ") + ".",
		Dossier:     append([]string(nil), s.dossier...),
	}
	for _, id := range s.order {
		p := s.players[id]
		reveal := models.PlayerReveal{ID: p.ID, Name: p.Name, Role: p.Role, Team: p.Team}
		result.Players = append(result.Players, reveal)
		if id == tally.VotedOut {
			voted := reveal
			result.VotedOutPlayer = &voted
		}
	}
	s.result = result
	s.enterPhase(models.PhaseEnd)
	s.log.Info().Str("winner", result.Winner).Bool("tie", result.IsTie).Msg("game over")

	for _, p := range s.activePlayers() {
		ob.to(p.ConnectionID, models.EventGameOver, result)
	}
	s.broadcastState(ob)
}

// enterPhase commits a phase change and rearms the deadline timer
func (s *Session) enterPhase(phase models.GamePhase) {
	s.phase = phase
	s.epoch++
	s.stopDeadline()
	if phase == models.PhaseNight || phase == models.PhaseVote {
		s.armDeadline()
	}
}

func (s *Session) armDeadline() {
	if s.phaseTimeout <= 0 {
		return
	}
	epoch := s.epoch
	s.timer = time.AfterFunc(s.phaseTimeout, func() { s.expire(epoch) })
}

func (s *Session) stopDeadline() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// expire force-resolves the phase that armed the timer, if it is still current
func (s *Session) expire(epoch uint64) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.log.Info().Str("phase", string(s.phase)).Msg("phase deadline reached")
	var ob Outbox
	switch s.phase {
	case models.PhaseNight:
		s.resolveNight(&ob)
	case models.PhaseVote:
		s.endGame(&ob)
	}
	deliver := s.onTimeout
	s.mu.Unlock()

	if deliver != nil && len(ob) > 0 {
		deliver(ob)
	}
}

func (s *Session) snapshot(viewerID string) models.SessionSnapshot {
	snap := models.SessionSnapshot{
		RoomCode:      s.code,
		Version:       s.version,
		Phase:         s.phase,
		Day:           s.day,
		HostID:        s.hostID,
		YouID:         viewerID,
		StolenItem:    s.stolenItem,
		MorningReport: append([]string{}, s.morningReport...),
		Dossier:       append([]string{}, s.dossier...),
		Result:        s.result,
	}
	reveal := s.phase == models.PhaseEnd
	for _, id := range s.order {
		p := s.players[id]
		view := models.PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Profile:   p.Profile,
			IsAlive:   p.IsAlive,
			Connected: p.Connected,
			IsHost:    p.ID == s.hostID,
		}
		if reveal || p.ID == viewerID {
			view.Role, view.Team = p.Role, p.Team
		}
		switch s.phase {
		case models.PhaseNight:
			view.Submitted = s.submittedNight(p.ID)
		case models.PhaseVote:
			_, view.Submitted = s.votes[p.ID]
		}
		snap.Players = append(snap.Players, view)
	}
	return snap
}

func (s *Session) broadcastState(ob *Outbox) {
	s.broadcastSnapshot(ob, models.EventSessionState)
}

func (s *Session) broadcastSnapshot(ob *Outbox, event string) {
	s.version++
	for _, id := range s.order {
		if p := s.players[id]; p.Connected {
			ob.to(p.ConnectionID, event, s.snapshot(p.ID))
		}
	}
}

func (ob *Outbox) to(connID, event string, payload interface{}) {
	if connID == "" {
		return
	}
	*ob = append(*ob, Notification{ConnectionID: connID, Type: event, Payload: payload})
}

// H is a shortcut for ad-hoc JSON payloads
type H map[string]interface{}
