package models

// Role represents player roles in the game
type Role string

const (
	RoleCollector Role = "Collector" // owns the stolen item, knows the truth
	RoleDetective Role = "Detective"
	RoleThief     Role = "Thief"
	RoleFencer    Role = "Fencer"
)

// Roles lists every role in a fixed order
var Roles = []Role{RoleCollector, RoleDetective, RoleThief, RoleFencer}

type roleInfo struct {
	team      Team
	nightMove bool
}

var roleTable = map[Role]roleInfo{
	RoleCollector: {team: TeamGood, nightMove: true},
	RoleDetective: {team: TeamGood, nightMove: true},
	RoleThief:     {team: TeamBad, nightMove: true},
	RoleFencer:    {team: TeamBad, nightMove: true},
}

// Valid reports whether r is one of the four roles
func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// Team derives the team from the role. Unknown roles have no team.
func (r Role) Team() Team {
	return roleTable[r].team
}

// HasNightAction reports whether the role submits a night action
func (r Role) HasNightAction() bool {
	return roleTable[r].nightMove
}
