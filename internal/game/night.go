package game

import (
	"fmt"
	"math/rand"

	"github.com/heist-game/backend/internal/models"
)

// FinalDay is the last day played before the vote
const FinalDay = 4

var quietNightMessages = []string{
	"An eerie silence hangs over the city. It's hard to know who to trust when everyone is being so quiet.",
	"The underworld was suspiciously calm last night. Some are laying low, but who?",
	"No new rumors surfaced overnight. It seems some players are choosing their moves very carefully.",
}

// PrivateMessage is addressed to a single player
type PrivateMessage struct {
	PlayerID string
	Text     string
}

// NightOutcome is everything NightResolver decided for one night
type NightOutcome struct {
	Private       []PrivateMessage
	NextDay       int
	StartVote     bool
	MorningReport []string
}

type nightContext struct {
	day     int
	clues   []string
	actions []models.NightAction
	players map[string]*models.Player
	out     *NightOutcome
}

// nightRule is the per-role behaviour at night. lie runs when the action is
// submitted; feedback runs once when the night resolves.
type nightRule struct {
	lie      func(target *models.Player) string
	feedback func(n *nightContext, a models.NightAction)
}

var nightRules = map[models.Role]nightRule{
	models.RoleCollector: {feedback: collectorTip},
	models.RoleDetective: {feedback: detectiveTail},
	models.RoleThief: {lie: func(target *models.Player) string {
		return fmt.Sprintf("A strange piece of evidence points to someone with a hobby of %s.", profileOf(target).Hobby)
	}},
	models.RoleFencer: {lie: func(target *models.Player) string {
		return fmt.Sprintf("A whisper on the street implicates someone whose occupation is a %s.", profileOf(target).Occupation)
	}},
}

func profileOf(p *models.Player) models.Profile {
	if p == nil || p.Profile == nil {
		return models.Profile{}
	}
	return *p.Profile
}

// GenerateLie returns the misleading line a Thief or Fencer action produces.
// Lay-low actions and roles without a lie produce nothing.
func GenerateLie(role models.Role, target *models.Player) string {
	rule, ok := nightRules[role]
	if !ok || rule.lie == nil || target == nil {
		return ""
	}
	return rule.lie(target)
}

// clueAt falls back to the first clue when i is out of range
func clueAt(clues []string, i int) string {
	if i >= 0 && i < len(clues) {
		return clues[i]
	}
	if len(clues) > 0 {
		return clues[0]
	}
	return ""
}

// FirstMorningLine is the report line that opens day one
func FirstMorningLine(clues []string) string {
	return fmt.Sprintf("Forensics found traces related to %q at the crime scene.", clueAt(clues, 0))
}

func detectiveTail(n *nightContext, a models.NightAction) {
	if !a.HasTarget() {
		return
	}
	target := n.players[*a.TargetID]
	if target == nil {
		return
	}
	msg := fmt.Sprintf("You tailed %s. ", target.Name)
	switch {
	case target.Role == models.RoleCollector:
		msg += "Nothing eventful seemed to occur."
	case movedAgainstSomeone(n.actions, target.ID):
		msg += "They made a suspicious move last night!"
	default:
		msg += "They laid low last night."
	}
	n.out.Private = append(n.out.Private, PrivateMessage{PlayerID: a.ActorID, Text: msg})
}

func movedAgainstSomeone(actions []models.NightAction, playerID string) bool {
	for _, a := range actions {
		if a.ActorID != playerID || !a.HasTarget() {
			continue
		}
		if a.ActorRole == models.RoleThief || a.ActorRole == models.RoleFencer {
			return true
		}
	}
	return false
}

func collectorTip(n *nightContext, a models.NightAction) {
	if !a.HasTarget() {
		return
	}
	target := n.players[*a.TargetID]
	if target == nil {
		return
	}
	clue := clueAt(n.clues, n.day)
	n.out.Private = append(n.out.Private,
		PrivateMessage{PlayerID: a.ActorID, Text: fmt.Sprintf("You sent a secret tip to %s regarding: %q.", target.Name, clue)},
		PrivateMessage{PlayerID: target.ID, Text: fmt.Sprintf("The Collector sent you a secret tip! A true detail is: %q.", clue)},
	)
}

// ResolveNight runs the private feedback for every action, then builds the
// next morning report unless the game moves on to the vote.
func ResolveNight(day int, clues []string, actions []models.NightAction, players map[string]*models.Player, rng *rand.Rand) NightOutcome {
	out := NightOutcome{NextDay: day + 1}
	n := &nightContext{day: day, clues: clues, actions: actions, players: players, out: &out}

	for _, a := range actions {
		if rule, ok := nightRules[a.ActorRole]; ok && rule.feedback != nil {
			rule.feedback(n, a)
		}
	}

	if out.NextDay > FinalDay {
		out.StartVote = true
		return out
	}
	out.MorningReport = morningReport(clueAt(clues, out.NextDay-1), actions, rng)
	return out
}

func morningReport(clue string, actions []models.NightAction, rng *rand.Rand) []string {
	report := []string{fmt.Sprintf("A key detail has emerged: %q.", clue)}

	var lies []string
	for _, a := range actions {
		if a.HasTarget() && a.GeneratedLie != "" {
			lies = append(lies, a.GeneratedLie)
		}
	}
	if len(lies) > 0 {
		report = append(report, lies[rng.Intn(len(lies))])
	} else {
		report = append(report, quietNightMessages[rng.Intn(len(quietNightMessages))])
	}

	rng.Shuffle(len(report), func(i, j int) {
		report[i], report[j] = report[j], report[i]
	})
	return report
}
