package game

import (
	"math/rand"

	"github.com/heist-game/backend/internal/models"
)

const (
	// MinPlayers is the smallest table the role pool supports
	MinPlayers = 4
	// MaxPlayers is the largest pool; bigger rooms would leave players roleless
	MaxPlayers = 8
)

// RolePool returns the role multiset for a table of k players.
// Tables of eight or more all get the eight-player pool.
func RolePool(k int) []models.Role {
	const (
		c = models.RoleCollector
		d = models.RoleDetective
		t = models.RoleThief
		f = models.RoleFencer
	)
	switch {
	case k < MinPlayers:
		return nil
	case k == 4:
		return []models.Role{c, d, t, f}
	case k == 5:
		return []models.Role{c, d, d, t, f}
	case k == 6:
		return []models.Role{c, d, d, d, t, f}
	case k == 7:
		return []models.Role{c, d, d, d, t, t, f}
	default:
		return []models.Role{c, d, d, d, d, t, t, f}
	}
}

// AssignRoles shuffles the pool for len(players) and deals it index for index.
func AssignRoles(players []*models.Player, rng *rand.Rand) {
	roles := RolePool(len(players))
	if roles == nil {
		return
	}

	// Shuffle roles
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	for i, player := range players {
		if i >= len(roles) {
			player.Role = ""
			player.Team = ""
			continue
		}
		player.Role = roles[i]
		player.Team = roles[i].Team()
	}
}
