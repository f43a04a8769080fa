package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"botcast/internal/game"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	s := &game.Session{
		Code:      "AB2C",
		HostID:    "host",
		Status:    game.StatusLobby,
		CreatedAt: time.Now().UTC(),
		Players:   []*game.Player{{ID: "p1", Name: "Alice", HasVoted: map[int]bool{}}},
	}
	if err := m.Set(ctx, s.Code, s, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := m.Get(ctx, "AB2C")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HostID != "host" || len(got.Players) != 1 || got.Players[0].Name != "Alice" {
		t.Fatalf("unexpected record %+v", got)
	}

	// Reads hand out copies: mutating one must not leak into the next read.
	got.Players[0].Name = "Mallory"
	again, _ := m.Get(ctx, "AB2C")
	if again.Players[0].Name != "Alice" {
		t.Fatal("store must not share state between reads")
	}
}

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), "ZZZZ"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	exists, err := m.Exists(context.Background(), "ZZZZ")
	if err != nil || exists {
		t.Fatalf("expected exists=false, got %v %v", exists, err)
	}
}

func TestMemoryTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := &game.Session{Code: "AB2C", CreatedAt: time.Now().UTC()}
	if err := m.Set(ctx, s.Code, s, 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := m.Get(ctx, "AB2C"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expired record should be gone, got %v", err)
	}
	exists, _ := m.Exists(ctx, "AB2C")
	if exists {
		t.Fatal("expired record must not exist")
	}
}
