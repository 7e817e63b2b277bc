package game

import (
	"fmt"
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/heist-game/backend/internal/models"
)

func countRoles(roles []models.Role) map[models.Role]int {
	counts := make(map[models.Role]int)
	for _, r := range roles {
		counts[r]++
	}
	return counts
}

func TestRolePool(t *testing.T) {
	tests := []struct {
		players                             int
		collector, detective, thief, fencer int
	}{
		{4, 1, 1, 1, 1},
		{5, 1, 2, 1, 1},
		{6, 1, 3, 1, 1},
		{7, 1, 3, 2, 1},
		{8, 1, 4, 2, 1},
		{12, 1, 4, 2, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d players", tt.players), func(t *testing.T) {
			got := countRoles(RolePool(tt.players))
			want := map[models.Role]int{
				models.RoleCollector: tt.collector,
				models.RoleDetective: tt.detective,
				models.RoleThief:     tt.thief,
				models.RoleFencer:    tt.fencer,
			}
			for role, n := range want {
				if got[role] != n {
					t.Errorf("%s: got %d, want %d", role, got[role], n)
				}
			}
		})
	}
}

func TestRolePoolTooSmall(t *testing.T) {
	for k := 0; k < MinPlayers; k++ {
		if pool := RolePool(k); pool != nil {
			t.Errorf("RolePool(%d) = %v, want nil", k, pool)
		}
	}
}

func TestRolePoolReturnsFreshSlice(t *testing.T) {
	a := RolePool(4)
	a[0] = models.RoleThief
	if b := RolePool(4); b[0] != models.RoleCollector {
		t.Errorf("pool was mutated through a previous result: %v", b)
	}
}

func newPlayers(n int) []*models.Player {
	players := make([]*models.Player, n)
	for i := range players {
		players[i] = &models.Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i), IsAlive: true, Connected: true}
	}
	return players
}

func TestAssignRolesDealsPool(t *testing.T) {
	property := func(n uint8, seed int64) bool {
		k := MinPlayers + int(n)%(MaxPlayers-MinPlayers+1)
		players := newPlayers(k)
		AssignRoles(players, rand.New(rand.NewSource(seed)))

		dealt := make([]models.Role, 0, k)
		for _, p := range players {
			if !p.Role.Valid() || p.Team != p.Role.Team() {
				return false
			}
			dealt = append(dealt, p.Role)
		}
		want := countRoles(RolePool(k))
		got := countRoles(dealt)
		for role, n := range want {
			if got[role] != n {
				return false
			}
		}
		return len(got) == len(want)
	}
	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestAssignRolesShuffles(t *testing.T) {
	seen := make(map[models.Role]bool)
	for seed := int64(0); seed < 50; seed++ {
		players := newPlayers(4)
		AssignRoles(players, rand.New(rand.NewSource(seed)))
		seen[players[0].Role] = true
	}
	if len(seen) < 2 {
		t.Errorf("first seat always got %v", seen)
	}
}

func TestAssignRolesTooFewPlayers(t *testing.T) {
	players := newPlayers(3)
	AssignRoles(players, rand.New(rand.NewSource(1)))
	for _, p := range players {
		if p.Role != "" {
			t.Errorf("%s got role %s with only 3 players", p.ID, p.Role)
		}
	}
}
