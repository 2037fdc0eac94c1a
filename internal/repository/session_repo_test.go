package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pdfchat-backend/internal/models"
)

func newMemoryStore(t *testing.T) SessionStore {
	repo := NewMemorySessionRepo(time.Hour)
	t.Cleanup(repo.Close)
	return repo
}

func newRedisStore(t *testing.T) SessionStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSessionRepo(client, time.Hour)
}

var storeBackends = []struct {
	name string
	new  func(t *testing.T) SessionStore
}{
	{"memory", newMemoryStore},
	{"redis", newRedisStore},
}

func TestSessionStore_CreateSeedsGreeting(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.new(t)
			ctx := context.Background()

			s := &models.Session{Model: "gpt-4"}
			if err := store.Create(ctx, s); err != nil {
				t.Fatalf("Create err: %v", err)
			}
			if s.ID == uuid.Nil {
				t.Fatalf("expected Create to assign an id")
			}

			got, err := store.GetByID(ctx, s.ID)
			if err != nil {
				t.Fatalf("GetByID err: %v", err)
			}
			if got.Model != "gpt-4" {
				t.Fatalf("unexpected model: %q", got.Model)
			}
			if got.HasCredential {
				t.Fatalf("expected no credential on new session")
			}
			if len(got.Turns) != 1 || got.Turns[0].Role != models.RoleAssistant || got.Turns[0].Content != models.Greeting {
				t.Fatalf("expected single greeting turn, got %+v", got.Turns)
			}
		})
	}
}

func TestSessionStore_AppendAndReset(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.new(t)
			ctx := context.Background()

			s := &models.Session{Model: "gpt-3.5-turbo"}
			if err := store.Create(ctx, s); err != nil {
				t.Fatalf("Create err: %v", err)
			}

			appended := []models.ChatTurn{
				{Role: models.RoleUser, Content: "first"},
				{Role: models.RoleAssistant, Content: "second"},
				{Role: models.RoleUser, Content: "third"},
			}
			for _, turn := range appended {
				if err := store.AppendTurn(ctx, s.ID, turn); err != nil {
					t.Fatalf("AppendTurn err: %v", err)
				}
			}

			turns, err := store.Turns(ctx, s.ID)
			if err != nil {
				t.Fatalf("Turns err: %v", err)
			}
			if len(turns) != 4 {
				t.Fatalf("expected 4 turns, got %d", len(turns))
			}
			for i, want := range appended {
				if turns[i+1] != want {
					t.Fatalf("turn %d: got %+v want %+v", i+1, turns[i+1], want)
				}
			}

			reset, err := store.Reset(ctx, s.ID)
			if err != nil {
				t.Fatalf("Reset err: %v", err)
			}
			if len(reset) != 1 || reset[0].Content != models.Greeting {
				t.Fatalf("unexpected reset result: %+v", reset)
			}

			turns, _ = store.Turns(ctx, s.ID)
			if len(turns) != 1 || turns[0].Role != models.RoleAssistant || turns[0].Content != models.Greeting {
				t.Fatalf("expected only greeting after reset, got %+v", turns)
			}
		})
	}
}

func TestSessionStore_UpdateSettings(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.new(t)
			ctx := context.Background()

			s := &models.Session{Model: "gpt-3.5-turbo"}
			store.Create(ctx, s)

			key := "sk-test"
			if err := store.UpdateSettings(ctx, s.ID, nil, &key); err != nil {
				t.Fatalf("UpdateSettings err: %v", err)
			}

			got, _ := store.GetByID(ctx, s.ID)
			if got.Model != "gpt-3.5-turbo" {
				t.Fatalf("model should be unchanged, got %q", got.Model)
			}
			if got.Credential != key || !got.HasCredential {
				t.Fatalf("credential not stored: %+v", got)
			}

			model := "gpt-4"
			store.UpdateSettings(ctx, s.ID, &model, nil)
			got, _ = store.GetByID(ctx, s.ID)
			if got.Model != "gpt-4" || got.Credential != key {
				t.Fatalf("unexpected settings after model change: %+v", got)
			}
		})
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.new(t)
			ctx := context.Background()
			missing := uuid.New()

			if _, err := store.GetByID(ctx, missing); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("GetByID: expected ErrSessionNotFound, got %v", err)
			}
			if _, err := store.Turns(ctx, missing); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("Turns: expected ErrSessionNotFound, got %v", err)
			}
			if err := store.AppendTurn(ctx, missing, models.ChatTurn{Role: models.RoleUser}); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("AppendTurn: expected ErrSessionNotFound, got %v", err)
			}
			if _, err := store.Reset(ctx, missing); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("Reset: expected ErrSessionNotFound, got %v", err)
			}
			if err := store.Delete(ctx, missing); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("Delete: expected ErrSessionNotFound, got %v", err)
			}
		})
	}
}

func TestSessionStore_Delete(t *testing.T) {
	for _, backend := range storeBackends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.new(t)
			ctx := context.Background()

			s := &models.Session{}
			store.Create(ctx, s)

			if err := store.Delete(ctx, s.ID); err != nil {
				t.Fatalf("Delete err: %v", err)
			}
			if _, err := store.GetByID(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected session to be gone, got %v", err)
			}
		})
	}
}

func TestMemorySessionRepo_ReturnsCopies(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Close()
	ctx := context.Background()

	s := &models.Session{}
	repo.Create(ctx, s)

	got, _ := repo.GetByID(ctx, s.ID)
	got.Turns[0].Content = "tampered"
	got.Turns = append(got.Turns, models.ChatTurn{Role: models.RoleUser, Content: "x"})

	turns, _ := repo.Turns(ctx, s.ID)
	if len(turns) != 1 || turns[0].Content != models.Greeting {
		t.Fatalf("store state changed through returned copy: %+v", turns)
	}
}

func TestMemorySessionRepo_EvictsIdleSessions(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Close()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	stale := &models.Session{}
	repo.Create(ctx, stale)

	now = now.Add(50 * time.Minute)
	fresh := &models.Session{}
	repo.Create(ctx, fresh)

	now = now.Add(20 * time.Minute)
	if n := repo.evictExpired(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}

	if _, err := repo.GetByID(ctx, stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected stale session to be evicted")
	}
	if _, err := repo.GetByID(ctx, fresh.ID); err != nil {
		t.Fatalf("expected fresh session to survive: %v", err)
	}
}

func TestRedisSessionRepo_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewRedisSessionRepo(client, time.Minute)
	ctx := context.Background()

	s := &models.Session{}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := repo.GetByID(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}
