package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/heist-game/backend/internal/models"
)

func sequence(codes ...string) func() string {
	i := 0
	return func() string {
		c := codes[i%len(codes)]
		i++
		return c
	}
}

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := generateRoomCode()
		if len(code) != RoomCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(RoomCodeChars, r) {
				t.Fatalf("code %q contains %q", code, r)
			}
		}
	}
}

func TestCreateRegeneratesOnCollision(t *testing.T) {
	gm := NewGameManager(WithCodeGenerator(sequence("AAAAA", "AAAAA", "BBBBB")))
	first := gm.Create()
	second := gm.Create()
	if first.Code() != "AAAAA" || second.Code() != "BBBBB" {
		t.Errorf("codes = %s, %s", first.Code(), second.Code())
	}
	if gm.Count() != 2 {
		t.Errorf("count = %d", gm.Count())
	}
}

func TestCreateRoomSeatsHost(t *testing.T) {
	gm := NewGameManager(WithCodeGenerator(sequence("ABCDE")))
	room, playerID, ob, err := gm.CreateRoom("conn-1", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Code() != "ABCDE" {
		t.Errorf("code = %s", room.Code())
	}
	if room.HostID() != playerID {
		t.Errorf("host = %q, want %q", room.HostID(), playerID)
	}
	created := notificationsTo(ob, "conn-1", models.EventRoomCreated)
	if len(created) != 1 {
		t.Fatalf("got %d room_created", len(created))
	}
	if snap := created[0].Payload.(models.SessionSnapshot); snap.YouID != playerID || snap.RoomCode != "ABCDE" {
		t.Errorf("snapshot = %+v", snap)
	}

	if _, _, _, err := gm.CreateRoom("conn-2", ""); err == nil {
		t.Error("blank host name accepted")
	}
	if gm.Count() != 1 {
		t.Errorf("failed create left %d rooms", gm.Count())
	}
}

func TestFindIsCaseInsensitive(t *testing.T) {
	gm := NewGameManager(WithCodeGenerator(sequence("ABCDE")))
	room := gm.Create()

	found, err := gm.Find(" abcde ")
	if err != nil || found != room {
		t.Fatalf("Find = %v, %v", found, err)
	}
	_, err = gm.Find("ZZZZZ")
	wantErr(t, err, ErrRoomNotFound)
}

func TestDisconnectRemovesEmptyRoom(t *testing.T) {
	gm := NewGameManager(WithCodeGenerator(sequence("ABCDE")))
	room, _, _, err := gm.CreateRoom("conn-1", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := room.Join("conn-2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	gm.Disconnect("ABCDE", "conn-1")
	if _, err := gm.Find("ABCDE"); err != nil {
		t.Fatalf("room removed while Bob is connected: %v", err)
	}
	gm.Disconnect("ABCDE", "conn-2")
	_, err = gm.Find("ABCDE")
	wantErr(t, err, ErrRoomNotFound)

	_, _, err = room.Join("conn-3", "Carol")
	wantErr(t, err, ErrRoomNotFound)
}

func TestSweepRemovesIdleRooms(t *testing.T) {
	gm := NewGameManager(WithCodeGenerator(sequence("IDLE1", "LIVE1")))
	idle := gm.Create()
	if _, _, err := idle.AddPlayer("Reserved"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	live := gm.Create()
	if _, _, err := live.Join("conn-1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if n := gm.Sweep(time.Minute, time.Now()); n != 0 {
		t.Errorf("swept %d fresh rooms", n)
	}
	if n := gm.Sweep(time.Minute, time.Now().Add(2*time.Minute)); n != 1 {
		t.Errorf("swept %d rooms, want 1", n)
	}
	if _, err := gm.Find("IDLE1"); err == nil {
		t.Error("idle room survived the sweep")
	}
	if _, err := gm.Find("LIVE1"); err != nil {
		t.Errorf("live room swept: %v", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	gm := NewGameManager(WithCodeGenerator(sequence("IDLE1")))
	gm.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gm.Run(ctx, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for gm.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("idle room never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSessionOptionsApplied(t *testing.T) {
	gm := NewGameManager(
		WithCodeGenerator(sequence("ABCDE")),
		WithSessionOptions(Options{MaxPlayers: 4}),
		WithSeed(func() int64 { return 7 }),
	)
	room := gm.Create()
	for i, name := range []string{"A", "B", "C", "D"} {
		if _, _, err := room.AddPlayer(name); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	_, _, err := room.AddPlayer("E")
	wantErr(t, err, ErrRoomFull)
}
