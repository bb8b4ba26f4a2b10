package memory

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore()
	if err != nil {
		t.Fatalf("NewChromemStore() error = %v", err)
	}
	return store
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := Record{
		ID:     "m1",
		Vector: []float32{1, 0, 0},
		Metadata: Metadata{
			ConversationID: "c1",
			PrincipalID:    "p1",
			Text:           "first version",
		},
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rec.Metadata.Text = "second version"
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() retry error = %v", err)
	}

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 5, Filter{ConversationID: "c1", PrincipalID: "p1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want exactly 1 record at the id", len(matches))
	}
	if matches[0].Metadata.Text != "second version" {
		t.Fatalf("Text = %q, want latest values after retried upsert", matches[0].Metadata.Text)
	}
}

func TestQueryScopesToPrincipalAndConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: Metadata{ConversationID: "c1", PrincipalID: "p1", Text: "mine"}},
		{ID: "b", Vector: []float32{1, 0, 0}, Metadata: Metadata{ConversationID: "c2", PrincipalID: "p1", Text: "other chat"}},
		{ID: "c", Vector: []float32{1, 0, 0}, Metadata: Metadata{ConversationID: "c1", PrincipalID: "p2", Text: "other tenant"}},
	}
	for _, r := range records {
		if err := store.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert(%s) error = %v", r.ID, err)
		}
	}

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 10, Filter{ConversationID: "c1", PrincipalID: "p1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("match id = %q, want %q", matches[0].ID, "a")
	}
}

func TestQueryOrdersBySimilarityThenRecency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	filter := Filter{ConversationID: "c1", PrincipalID: "p1"}

	records := []Record{
		{ID: "far", Vector: []float32{0, 1, 0}, Metadata: Metadata{ConversationID: "c1", PrincipalID: "p1", Text: "far"}},
		{ID: "near-old", Vector: []float32{1, 0, 0}, Metadata: Metadata{ConversationID: "c1", PrincipalID: "p1", Text: "near old"}},
		{ID: "near-new", Vector: []float32{1, 0, 0}, Metadata: Metadata{ConversationID: "c1", PrincipalID: "p1", Text: "near new"}},
	}
	for _, r := range records {
		if err := store.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert(%s) error = %v", r.ID, err)
		}
	}

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 3, filter)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(matches))
	}
	if matches[0].ID != "near-new" || matches[1].ID != "near-old" {
		t.Fatalf("order = [%s %s %s], want near-new before near-old (recency tie-break)",
			matches[0].ID, matches[1].ID, matches[2].ID)
	}
	if matches[2].ID != "far" {
		t.Fatalf("least similar = %q, want %q", matches[2].ID, "far")
	}
	if matches[0].Score < matches[2].Score {
		t.Fatalf("scores not descending: %v then %v", matches[0].Score, matches[2].Score)
	}
}

func TestQueryEmptyStore(t *testing.T) {
	store := newTestStore(t)
	matches, err := store.Query(context.Background(), []float32{1, 0, 0}, 3, Filter{ConversationID: "c1", PrincipalID: "p1"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("len(matches) = %d, want 0", len(matches))
	}
}
