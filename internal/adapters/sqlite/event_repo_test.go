package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/prodtrack/internal/adapters/sqlite"
	"github.com/example/prodtrack/internal/ports/secondary"
)

func TestEventRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	seedSession(t, db, "S1", "L04", "active", 0)
	seedSession(t, db, "S2", "L05", "active", 0)
	repo := sqlite.NewEventRepository(db)
	ctx := context.Background()

	events := []*secondary.EventRecord{
		{ID: "E1", SessionID: "S1", Action: "session_started", ActorID: "op-1", ActorName: "Amina", OccurredAt: at(0)},
		{ID: "E2", SessionID: "S1", PauseID: "P1", Action: "session_paused", Detail: "raw_material", OccurredAt: at(10)},
		// Same second as E2: insertion order breaks the tie
		{ID: "E3", SessionID: "S1", PauseID: "P1", Action: "session_resumed", OccurredAt: at(10)},
		{ID: "E4", SessionID: "S2", Action: "session_started", OccurredAt: at(5)},
	}
	for _, e := range events {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create %s failed: %v", e.ID, err)
		}
	}

	got, err := repo.ListBySession(ctx, "S1")
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []string{"E1", "E2", "E3"} {
		if got[i].ID != want {
			t.Errorf("event %d = %s, want %s", i, got[i].ID, want)
		}
	}
	if got[0].ActorName != "Amina" || got[1].PauseID != "P1" || got[1].Detail != "raw_material" {
		t.Errorf("unexpected event fields: %+v / %+v", got[0], got[1])
	}
	if !got[2].OccurredAt.Equal(at(10)) {
		t.Errorf("OccurredAt = %v, want %v", got[2].OccurredAt, at(10))
	}
}
