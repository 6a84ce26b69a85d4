package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "werewolf.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func seeded(code string) *models.Session {
	s := models.NewSession(code, epoch)
	s.History = append(s.History, models.Event{Timestamp: epoch, Type: models.EventGameCreated, Payload: map[string]string{"code": code}})
	return s
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Create(ctx, seeded("ABCDEF")); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := st.Create(ctx, seeded("ABCDEF")); !errors.Is(err, ErrDuplicateCode) {
				t.Fatalf("expected ErrDuplicateCode, got %v", err)
			}

			got, err := st.Get(ctx, "ABCDEF")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Phase != models.PhaseLobby || !got.CreatedAt.Equal(epoch) {
				t.Fatalf("unexpected session: %+v", got)
			}
			if len(got.History) != 1 || got.History[0].Payload["code"] != "ABCDEF" {
				t.Fatalf("unexpected history: %+v", got.History)
			}

			if _, err := st.Get(ctx, "ZZZZZZ"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			ok, err := st.Exists(ctx, "ABCDEF")
			if err != nil || !ok {
				t.Fatalf("expected ABCDEF to exist: %v %v", ok, err)
			}
			ok, err = st.Exists(ctx, "ZZZZZZ")
			if err != nil || ok {
				t.Fatalf("expected ZZZZZZ to be free: %v %v", ok, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Create(ctx, seeded("ROUND1")); err != nil {
				t.Fatalf("create: %v", err)
			}
			s, err := st.Get(ctx, "ROUND1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			victim := "p2"
			s.Phase = models.PhaseNightWitch
			s.Players = []models.Player{
				{ID: "p1", Name: "Ana", Role: models.RoleWolf, Status: models.StatusAlive},
				{ID: "p2", Name: "Bruno", Role: models.RoleSeer, Status: models.StatusAlive},
			}
			s.LastKilled = &victim
			s.Potions.HealUsed = true
			s.History = append(s.History, models.Event{Timestamp: epoch, Type: models.EventWolvesVote, Payload: map[string]string{"target": "Bruno"}})
			s.ChatHistory = append(s.ChatHistory, models.ChatMessage{Timestamp: epoch, Role: models.ChatUser, Content: "wolves pick Bruno"})

			if err := st.Save(ctx, s); err != nil {
				t.Fatalf("save: %v", err)
			}
			if s.Version != 1 {
				t.Fatalf("expected version 1 after save, got %d", s.Version)
			}

			got, err := st.Get(ctx, "ROUND1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Phase != models.PhaseNightWitch || got.Version != 1 {
				t.Fatalf("unexpected phase/version: %s %d", got.Phase, got.Version)
			}
			if got.LastKilled == nil || *got.LastKilled != "p2" {
				t.Fatalf("pending kill lost: %v", got.LastKilled)
			}
			if !got.Potions.HealUsed || got.Potions.PoisonUsed {
				t.Fatalf("unexpected potions: %+v", got.Potions)
			}
			if len(got.Players) != 2 || got.Players[0].Role != models.RoleWolf {
				t.Fatalf("unexpected players: %+v", got.Players)
			}
			if len(got.History) != 2 || got.History[1].Payload["target"] != "Bruno" {
				t.Fatalf("unexpected history: %+v", got.History)
			}
			if len(got.ChatHistory) != 1 || got.ChatHistory[0].Content != "wolves pick Bruno" {
				t.Fatalf("unexpected chat: %+v", got.ChatHistory)
			}
		})
	}
}

func TestSaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Create(ctx, seeded("STALE1")); err != nil {
				t.Fatalf("create: %v", err)
			}
			first, _ := st.Get(ctx, "STALE1")
			second, _ := st.Get(ctx, "STALE1")

			first.Phase = models.PhaseNightSeer
			if err := st.Save(ctx, first); err != nil {
				t.Fatalf("first save: %v", err)
			}
			second.Phase = models.PhaseEnded
			if err := st.Save(ctx, second); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict, got %v", err)
			}

			got, _ := st.Get(ctx, "STALE1")
			if got.Phase != models.PhaseNightSeer {
				t.Fatalf("stale write leaked through: %s", got.Phase)
			}

			missing := models.NewSession("NOPE00", epoch)
			if err := st.Save(ctx, missing); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestAppendsBumpVersion(t *testing.T) {
	ctx := context.Background()
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Create(ctx, seeded("APPEND")); err != nil {
				t.Fatalf("create: %v", err)
			}
			loaded, _ := st.Get(ctx, "APPEND")

			if err := st.AppendEvent(ctx, "APPEND", models.Event{Timestamp: epoch, Type: models.EventPlayerAdded, Payload: map[string]string{"name": "Ana"}}); err != nil {
				t.Fatalf("append event: %v", err)
			}
			if err := st.AppendChat(ctx, "APPEND",
				models.ChatMessage{Timestamp: epoch, Role: models.ChatUser, Content: "hi"},
				models.ChatMessage{Timestamp: epoch, Role: models.ChatAssistant, Content: "hello"},
			); err != nil {
				t.Fatalf("append chat: %v", err)
			}

			got, _ := st.Get(ctx, "APPEND")
			if len(got.History) != 2 || got.History[1].Type != models.EventPlayerAdded {
				t.Fatalf("unexpected history: %+v", got.History)
			}
			if len(got.ChatHistory) != 2 || got.ChatHistory[1].Role != models.ChatAssistant {
				t.Fatalf("unexpected chat: %+v", got.ChatHistory)
			}

			// A session loaded before the appends must not overwrite them.
			if err := st.Save(ctx, loaded); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict, got %v", err)
			}

			if err := st.AppendEvent(ctx, "NOPE00", models.Event{Type: models.EventGameOver}); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := seeded("ISOLAT")
	if err := st.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Phase = models.PhaseEnded
	s.History[0].Payload["code"] = "mutated"

	got, _ := st.Get(ctx, "ISOLAT")
	if got.Phase != models.PhaseLobby || got.History[0].Payload["code"] != "ISOLAT" {
		t.Fatalf("caller mutation reached the store: %+v", got)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
