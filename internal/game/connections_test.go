package game

import (
	"testing"

	"github.com/heist-game/backend/internal/models"
)

func TestConnectionManagerAttachDetach(t *testing.T) {
	cm := NewConnectionManager()
	p := &models.Player{ID: "p1", IsAlive: true}
	players := map[string]*models.Player{"p1": p}

	if old := cm.Attach(p, "c1"); old != "" {
		t.Errorf("first attach replaced %q", old)
	}
	if id, ok := cm.Resolve("c1"); !ok || id != "p1" {
		t.Fatalf("Resolve(c1) = %q, %v", id, ok)
	}
	if !p.Connected {
		t.Error("attached player should be connected")
	}

	got, ok := cm.Detach("c1", players)
	if !ok || got != p {
		t.Fatalf("Detach(c1) = %v, %v", got, ok)
	}
	if p.Connected {
		t.Error("detached player still connected")
	}
	if _, ok := cm.Resolve("c1"); ok {
		t.Error("detached connection still resolves")
	}
	if _, ok := cm.Detach("c1", players); ok {
		t.Error("second detach should be a no-op")
	}
}

func TestConnectionManagerReplace(t *testing.T) {
	cm := NewConnectionManager()
	p := &models.Player{ID: "p1", IsAlive: true}
	players := map[string]*models.Player{"p1": p}

	cm.Attach(p, "c1")
	if old := cm.Attach(p, "c2"); old != "c1" {
		t.Errorf("replaced = %q, want c1", old)
	}
	if _, ok := cm.Resolve("c1"); ok {
		t.Error("superseded connection still resolves")
	}
	// the superseded socket closing later must not knock the player offline
	if _, ok := cm.Detach("c1", players); ok {
		t.Error("stale connection detached the player")
	}
	if !p.Connected {
		t.Error("player went offline after stale detach")
	}
}

func TestConnectionManagerReattachAfterDrop(t *testing.T) {
	cm := NewConnectionManager()
	p := &models.Player{ID: "p1", IsAlive: true}
	players := map[string]*models.Player{"p1": p}

	cm.Attach(p, "c1")
	cm.Detach("c1", players)
	if old := cm.Attach(p, "c2"); old != "" {
		t.Errorf("reattach after drop replaced %q", old)
	}
	if id, _ := cm.Resolve("c2"); id != "p1" {
		t.Errorf("Resolve(c2) = %q", id)
	}
}

func TestPickHost(t *testing.T) {
	players := map[string]*models.Player{
		"a": {ID: "a", IsAlive: true},
		"b": {ID: "b", IsAlive: true, Connected: true},
		"c": {ID: "c", IsAlive: true, Connected: true},
	}
	if got := PickHost([]string{"a", "b", "c"}, players); got != "b" {
		t.Errorf("PickHost = %q, want b", got)
	}
	players["b"].Connected = false
	players["c"].Connected = false
	if got := PickHost([]string{"a", "b", "c"}, players); got != "" {
		t.Errorf("PickHost with nobody connected = %q", got)
	}
}
