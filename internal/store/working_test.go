package store

import (
	"context"
	"errors"
	"testing"

	"github.com/mnemo-dev/mnemo/internal/model"
)

func newSession(t *testing.T, s *Store, maxTokens int) string {
	t.Helper()
	sess, err := s.InitSession(context.Background(), InitSessionParams{UserID: "alice", MaxTokens: maxTokens})
	if err != nil {
		t.Fatalf("init session: %v", err)
	}
	return sess.SessionID
}

func addItem(t *testing.T, s *Store, sessionID, content string, tokens int, relevance float64, pinned bool) (*model.WorkingItem, []string) {
	t.Helper()
	item, evicted, err := s.AddItem(context.Background(), AddItemParams{
		SessionID:      sessionID,
		ContentType:    model.ContentMessage,
		Content:        content,
		TokenCount:     tokens,
		RelevanceScore: relevance,
		Pinned:         pinned,
	})
	if err != nil {
		t.Fatalf("add %q: %v", content, err)
	}
	return item, evicted
}

func TestAddItemWithinBudget(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 100)

	item, evicted := addItem(t, s, sid, "hello", 30, 0.5, false)
	if item.SequenceNum != 1 {
		t.Errorf("seq = %d, want 1", item.SequenceNum)
	}
	if len(evicted) != 0 {
		t.Errorf("unexpected eviction: %v", evicted)
	}

	sess, _ := s.GetSession(context.Background(), sid)
	if sess.TotalTokens != 30 {
		t.Errorf("total = %d, want 30", sess.TotalTokens)
	}
}

func TestAddItemEvictsLowestRelevanceFirst(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 100)

	low, _ := addItem(t, s, sid, "low", 40, 0.2, false)
	addItem(t, s, sid, "high", 40, 0.9, false)

	// 40 over budget: the 0.2 item alone frees enough
	_, evicted := addItem(t, s, sid, "new", 60, 0.5, false)
	if len(evicted) != 1 || evicted[0] != low.ItemID {
		t.Errorf("evicted %v, want [%s]", evicted, low.ItemID)
	}

	sess, _ := s.GetSession(context.Background(), sid)
	if sess.TotalTokens != 100 {
		t.Errorf("total = %d, want 100", sess.TotalTokens)
	}
}

func TestPinnedItemsNeverEvicted(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 100)

	addItem(t, s, sid, "pinned A", 60, 0.1, true)

	// No non-pinned items to evict; the add goes over budget.
	_, evicted := addItem(t, s, sid, "B", 60, 0.5, false)
	if len(evicted) != 0 {
		t.Errorf("evicted %v, want none", evicted)
	}

	sess, _ := s.GetSession(context.Background(), sid)
	if sess.TotalTokens != 120 {
		t.Errorf("total = %d, want 120 (over budget with pinned)", sess.TotalTokens)
	}
}

func TestEvictionTieBreaksOnSequence(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 100)

	older, _ := addItem(t, s, sid, "older", 50, 0.5, false)
	addItem(t, s, sid, "newer", 50, 0.5, false)

	_, evicted := addItem(t, s, sid, "incoming", 50, 0.5, false)
	if len(evicted) != 1 || evicted[0] != older.ItemID {
		t.Errorf("evicted %v, want the older item %s", evicted, older.ItemID)
	}
}

func TestGetItemsOrderingAndBudget(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 1000)

	addItem(t, s, sid, "mid relevance", 100, 0.5, false)
	addItem(t, s, sid, "high relevance", 100, 0.9, false)
	addItem(t, s, sid, "pinned low", 100, 0.1, true)

	items, used, truncated, err := s.GetItems(context.Background(), sid, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 3 || used != 300 || truncated {
		t.Fatalf("items=%d used=%d truncated=%v", len(items), used, truncated)
	}
	if items[0].Content != "pinned low" {
		t.Errorf("pinned not first: %q", items[0].Content)
	}
	if items[1].Content != "high relevance" {
		t.Errorf("relevance order wrong: %q", items[1].Content)
	}
}

func TestGetItemsSkipsOversizedItems(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 1000)

	addItem(t, s, sid, "big", 150, 0.9, false)
	addItem(t, s, sid, "small", 50, 0.5, false)

	// Budget 100: the 150-token item is skipped, the 50-token one fits.
	items, used, truncated, err := s.GetItems(context.Background(), sid, 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 1 || items[0].Content != "small" {
		t.Fatalf("items = %+v", items)
	}
	if used != 50 || !truncated {
		t.Errorf("used=%d truncated=%v", used, truncated)
	}
}

func TestUpdateItem(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 1000)

	item, _ := addItem(t, s, sid, "x", 10, 0.5, false)

	pinned := true
	rel := 0.9
	if err := s.UpdateItem(context.Background(), item.ItemID, &pinned, &rel); err != nil {
		t.Fatalf("update: %v", err)
	}

	items, _, _, _ := s.GetItems(context.Background(), sid, 0)
	if !items[0].Pinned || items[0].RelevanceScore != 0.9 {
		t.Errorf("update not applied: %+v", items[0])
	}
}

func TestUpdateItemNotFound(t *testing.T) {
	s := newTestStore(t)

	rel := 0.9
	err := s.UpdateItem(context.Background(), "no-such-item", nil, &rel)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}

func TestClearSessionKeepPinned(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 1000)

	addItem(t, s, sid, "keep", 40, 0.5, true)
	addItem(t, s, sid, "drop", 60, 0.5, false)

	removed, err := s.ClearSession(context.Background(), sid, true)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	sess, _ := s.GetSession(context.Background(), sid)
	if sess.TotalTokens != 40 {
		t.Errorf("total = %d, want 40", sess.TotalTokens)
	}
}

func TestRemoveItemsSubtractsTokens(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 1000)

	a, _ := addItem(t, s, sid, "a", 30, 0.5, false)
	addItem(t, s, sid, "b", 20, 0.5, false)

	if err := s.RemoveItems(context.Background(), sid, []string{a.ItemID}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	sess, _ := s.GetSession(context.Background(), sid)
	if sess.TotalTokens != 20 {
		t.Errorf("total = %d, want 20", sess.TotalTokens)
	}
}

func TestUnpinnedInOrder(t *testing.T) {
	s := newTestStore(t)
	sid := newSession(t, s, 1000)

	addItem(t, s, sid, "first", 10, 0.9, false)
	addItem(t, s, sid, "pinned", 10, 0.9, true)
	addItem(t, s, sid, "second", 10, 0.1, false)

	items, err := s.UnpinnedInOrder(context.Background(), sid)
	if err != nil {
		t.Fatalf("unpinned: %v", err)
	}
	if len(items) != 2 || items[0].Content != "first" || items[1].Content != "second" {
		t.Errorf("wrong order: %+v", items)
	}
}
