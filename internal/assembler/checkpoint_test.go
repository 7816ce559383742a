package assembler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mnemo-dev/mnemo/internal/embedding"
	"github.com/mnemo-dev/mnemo/internal/memory"
	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

func TestCheckpointPromotesWorthyItems(t *testing.T) {
	cls := &fakeClassifier{classification: model.Classification{
		Category: "semantic", Subtype: "project", Importance: 0.8,
	}}
	asm, mgr := newTestAssembler(t, cls)
	ctx := context.Background()

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentMessage, Content: "we decided to shard the events table by tenant", TokenCount: 50, RelevanceScore: 0.8},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.MemoriesCreated != 1 || res.MemoriesUpdated != 0 {
		t.Errorf("created=%d updated=%d", res.MemoriesCreated, res.MemoriesUpdated)
	}
	if res.TokensFreed != 50 || res.ItemsProcessed != 1 {
		t.Errorf("freed=%d processed=%d", res.TokensFreed, res.ItemsProcessed)
	}

	// Item is gone from working memory and the session total is updated.
	sess, _ := mgr.Store().GetSession(ctx, sid)
	if sess.TotalTokens != 0 {
		t.Errorf("session tokens = %d", sess.TotalTokens)
	}

	// The promoted memory is recallable and tagged as a checkpoint.
	got, err := mgr.Recall(ctx, memory.RecallParams{
		UserID: "alice", Query: "we decided to shard the events table by tenant",
	})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(got.Memories) != 1 {
		t.Fatalf("hits = %d", len(got.Memories))
	}
	if got.Memories[0].SourceType != model.SourceCheckpoint {
		t.Errorf("source type = %s", got.Memories[0].SourceType)
	}
	if got.Memories[0].SourceSession != sid {
		t.Errorf("source session = %s", got.Memories[0].SourceSession)
	}
}

func TestCheckpointSkipsTrivialItems(t *testing.T) {
	cls := &fakeClassifier{classification: model.Classification{
		Category: "semantic", Subtype: "project", Importance: 0.9,
	}}
	asm, mgr := newTestAssembler(t, cls)
	ctx := context.Background()

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentMessage, Content: "ok", TokenCount: 5, RelevanceScore: 0.9},
		{ContentType: model.ContentMessage, Content: "barely relevant chatter that goes on", TokenCount: 40, RelevanceScore: 0.1},
		{ContentType: model.ContentSystem, Content: "system prompt preamble, long enough to pass size checks", TokenCount: 40, RelevanceScore: 0.9},
		{ContentType: model.ContentRetrievedMemory, Content: "a memory already stored long term previously", TokenCount: 40, RelevanceScore: 0.9},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.ItemsProcessed != 0 || res.MemoriesCreated != 0 {
		t.Errorf("result = %+v", res)
	}

	items, _ := mgr.Store().UnpinnedInOrder(ctx, sid)
	if len(items) != 4 {
		t.Errorf("items removed despite being skipped: %d left", len(items))
	}
}

func TestCheckpointLowImportanceStays(t *testing.T) {
	cls := &fakeClassifier{classification: model.Classification{
		Category: "episodic", Subtype: "conversation", Importance: 0.2,
	}}
	asm, mgr := newTestAssembler(t, cls)
	ctx := context.Background()

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentMessage, Content: "small talk about the weather today", TokenCount: 40, RelevanceScore: 0.8},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.ItemsProcessed != 0 {
		t.Errorf("processed = %d", res.ItemsProcessed)
	}
	if items, _ := mgr.Store().UnpinnedInOrder(ctx, sid); len(items) != 1 {
		t.Error("low-importance item should remain in working memory")
	}
}

func TestCheckpointClassifierFailureLeavesItem(t *testing.T) {
	asm, mgr := newTestAssembler(t, &fakeClassifier{err: errors.New("provider down")})
	ctx := context.Background()

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentMessage, Content: "an important decision we should keep", TokenCount: 40, RelevanceScore: 0.8},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.ItemsProcessed != 0 {
		t.Errorf("processed = %d", res.ItemsProcessed)
	}
	if items, _ := mgr.Store().UnpinnedInOrder(ctx, sid); len(items) != 1 {
		t.Error("item should survive a classification failure")
	}
}

func TestCheckpointDeduplicates(t *testing.T) {
	cls := &fakeClassifier{classification: model.Classification{
		Category: "semantic", Subtype: "project", Importance: 0.8,
	}}
	asm, mgr := newTestAssembler(t, cls)
	ctx := context.Background()

	content := "the events table is sharded by tenant id"
	seedMemory(t, mgr, content, "semantic", "project", 0.7, nil)

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentMessage, Content: content, TokenCount: 50, RelevanceScore: 0.8},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.MemoriesCreated != 0 || res.MemoriesUpdated != 1 {
		t.Errorf("created=%d updated=%d", res.MemoriesCreated, res.MemoriesUpdated)
	}
	if res.ItemsProcessed != 1 {
		t.Errorf("processed = %d", res.ItemsProcessed)
	}
	if n, _ := mgr.Store().CountForUser(ctx, "alice"); n != 1 {
		t.Errorf("memory count = %d, want 1", n)
	}
}

func TestCheckpointIndexFailureRollsBackRow(t *testing.T) {
	cls := &fakeClassifier{classification: model.Classification{
		Category: "semantic", Subtype: "project", Importance: 0.8,
	}}

	dir := t.TempDir()
	vecDir := filepath.Join(dir, "vectors")
	ix, err := vector.NewPersistent(vecDir)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	s, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	mgr := memory.New(s, ix, embedding.NewMockEmbedder(0), cls, nil)
	asm := New(mgr)
	ctx := context.Background()

	// Materialize the user's collection on disk, then replace its
	// directory with a plain file so the next persisted write fails.
	emb, err := mgr.Embedder().Embed(ctx, "unrelated seed entry")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := ix.Upsert(ctx, "alice", vector.Doc{ID: "seed", Content: "unrelated seed entry", Embedding: emb}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	entries, err := os.ReadDir(vecDir)
	if err != nil {
		t.Fatalf("read vector dir: %v", err)
	}
	sabotaged := false
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(vecDir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			t.Fatalf("remove %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("block %s: %v", p, err)
		}
		sabotaged = true
	}
	if !sabotaged {
		t.Fatal("no collection directory to break")
	}

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentMessage, Content: "we decided to shard the events table by tenant", TokenCount: 50, RelevanceScore: 0.8},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.MemoriesCreated != 0 || res.ItemsProcessed != 0 {
		t.Errorf("result = %+v", res)
	}
	// The failed promotion leaves no live long-term row behind and the
	// item stays in working memory for the next run.
	if n, _ := mgr.Store().CountForUser(ctx, "alice"); n != 0 {
		t.Errorf("orphaned rows = %d", n)
	}
	if items, _ := mgr.Store().UnpinnedInOrder(ctx, sid); len(items) != 1 {
		t.Error("item should remain in working memory")
	}
}

func TestCheckpointPinnedItemsUntouched(t *testing.T) {
	cls := &fakeClassifier{classification: model.Classification{
		Category: "semantic", Subtype: "project", Importance: 0.9,
	}}
	asm, mgr := newTestAssembler(t, cls)
	ctx := context.Background()

	sid := newSessionWithItems(t, mgr, []store.AddItemParams{
		{ContentType: model.ContentTaskState, Content: "pinned task state that must stay in the session", TokenCount: 50, RelevanceScore: 0.9, Pinned: true},
	})

	res, err := asm.Checkpoint(ctx, sid, "alice")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.ItemsProcessed != 0 {
		t.Errorf("processed = %d", res.ItemsProcessed)
	}

	items, _, _, _ := mgr.Store().GetItems(ctx, sid, 0)
	if len(items) != 1 || !items[0].Pinned {
		t.Error("pinned item missing after checkpoint")
	}
}
