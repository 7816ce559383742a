package vector

import (
	"context"
	"testing"

	"github.com/mnemo-dev/mnemo/internal/embedding"
)

func newTestIndex(t *testing.T) (*Index, *embedding.MockEmbedder) {
	t.Helper()
	return New(), embedding.NewMockEmbedder(0)
}

func mustEmbed(t *testing.T, emb *embedding.MockEmbedder, text string) []float32 {
	t.Helper()
	v, err := emb.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return v
}

func TestUpsertAndSearch(t *testing.T) {
	ix, emb := newTestIndex(t)
	ctx := context.Background()

	texts := []string{
		"postgres connection pooling settings",
		"favorite editor is neovim",
		"deploy runs through github actions",
	}
	for i, text := range texts {
		err := ix.Upsert(ctx, "alice", Doc{
			ID:        string(rune('a' + i)),
			Content:   text,
			Embedding: mustEmbed(t, emb, text),
			Metadata:  map[string]string{"category": "semantic", "subtype": "project"},
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	hits, err := ix.Search(ctx, "alice", mustEmbed(t, emb, texts[0]), 10, Filter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if hits[0].Content != texts[0] {
		t.Errorf("top hit = %q, want exact match first", hits[0].Content)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("exact match similarity = %v", hits[0].Similarity)
	}
}

func TestSearchFilterByCategory(t *testing.T) {
	ix, emb := newTestIndex(t)
	ctx := context.Background()

	docs := []struct {
		id, category string
	}{
		{"m1", "semantic"},
		{"m2", "procedural"},
		{"m3", "semantic"},
	}
	for _, d := range docs {
		err := ix.Upsert(ctx, "alice", Doc{
			ID:        d.id,
			Content:   "content " + d.id,
			Embedding: mustEmbed(t, emb, "content "+d.id),
			Metadata:  map[string]string{"category": d.category},
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	hits, err := ix.Search(ctx, "alice", mustEmbed(t, emb, "content"), 10, Filter{Category: "semantic"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for _, h := range hits {
		if h.Metadata["category"] != "semantic" {
			t.Errorf("hit %s leaked through filter", h.ID)
		}
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	ix, emb := newTestIndex(t)

	hits, err := ix.Search(context.Background(), "nobody", mustEmbed(t, emb, "query"), 5, Filter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestUserIsolation(t *testing.T) {
	ix, emb := newTestIndex(t)
	ctx := context.Background()

	if err := ix.Upsert(ctx, "alice", Doc{ID: "m1", Content: "alice fact", Embedding: mustEmbed(t, emb, "alice fact")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := ix.Search(ctx, "bob", mustEmbed(t, emb, "alice fact"), 5, Filter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Error("bob should not see alice's documents")
	}
}

func TestDelete(t *testing.T) {
	ix, emb := newTestIndex(t)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2"} {
		if err := ix.Upsert(ctx, "alice", Doc{ID: id, Content: id, Embedding: mustEmbed(t, emb, id)}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := ix.Delete(ctx, "alice", "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err := ix.Count("alice")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d after delete, want 1", n)
	}
}
