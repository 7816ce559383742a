package quality

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mnemo-dev/mnemo/internal/embedding"
	"github.com/mnemo-dev/mnemo/internal/memory"
	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

func newTestChecker(t *testing.T) (*Checker, *memory.Manager) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	mgr := memory.New(s, vector.New(), embedding.NewMockEmbedder(0), nil, nil)
	return New(mgr), mgr
}

// seedIndexed inserts a memory row and indexes it under the embedding of
// embedAs, letting tests control which memories look similar.
func seedIndexed(t *testing.T, mgr *memory.Manager, content, category, subtype, embedAs string, importance float64) *model.Memory {
	t.Helper()
	ctx := context.Background()
	m := &model.Memory{
		UserID:     "alice",
		Category:   category,
		Subtype:    subtype,
		Content:    content,
		Importance: importance,
	}
	if err := mgr.Store().InsertMemory(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	emb, err := mgr.Embedder().Embed(ctx, embedAs)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := mgr.Index().Upsert(ctx, "alice", vector.Doc{
		ID:        m.MemoryID,
		Content:   content,
		Embedding: emb,
		Metadata:  map[string]string{"category": category, "subtype": subtype},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return m
}

func TestFindContradictions(t *testing.T) {
	checker, mgr := newTestChecker(t)

	// Both indexed under the first content's embedding, so they read as
	// the same topic while sharing almost no words.
	anchor := "production database is postgres fourteen"
	older := seedIndexed(t, mgr, anchor, "semantic", "environment", anchor, 0.6)
	newer := seedIndexed(t, mgr, "we upgraded prod to pg sixteen last week", "semantic", "environment", anchor, 0.6)

	found, err := checker.FindContradictions(context.Background(), "alice", 0.75, 10)
	if err != nil {
		t.Fatalf("contradictions: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d contradictions, want 1", len(found))
	}
	if found[0].Newer.ID != newer.MemoryID || found[0].Older.ID != older.MemoryID {
		t.Errorf("pair = newer %s older %s", found[0].Newer.ID, found[0].Older.ID)
	}
	if found[0].Similarity < 0.99 {
		t.Errorf("similarity = %v", found[0].Similarity)
	}
}

func TestContradictionsSkipRestatements(t *testing.T) {
	checker, mgr := newTestChecker(t)

	content := "the deploy pipeline runs on merge to main"
	seedIndexed(t, mgr, content, "semantic", "project", content, 0.6)
	seedIndexed(t, mgr, content, "semantic", "entity", content, 0.6)

	found, err := checker.FindContradictions(context.Background(), "alice", 0.75, 10)
	if err != nil {
		t.Fatalf("contradictions: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("restatement flagged as contradiction: %+v", found)
	}
}

func TestContradictionsPairDedup(t *testing.T) {
	checker, mgr := newTestChecker(t)

	anchor := "service timeout is thirty seconds"
	a := seedIndexed(t, mgr, anchor, "semantic", "environment", anchor, 0.6)
	b := seedIndexed(t, mgr, "gateway cutoff now ninety", "semantic", "environment", anchor, 0.6)

	// Index both under the same vector so each finds the other.
	emb, _ := mgr.Embedder().Embed(context.Background(), anchor)
	mgr.Index().Upsert(context.Background(), "alice", vector.Doc{
		ID: b.MemoryID, Content: b.Content, Embedding: emb,
		Metadata: map[string]string{"category": "semantic", "subtype": "environment"},
	})
	_ = a

	found, err := checker.FindContradictions(context.Background(), "alice", 0.75, 10)
	if err != nil {
		t.Fatalf("contradictions: %v", err)
	}
	if len(found) > 1 {
		t.Errorf("pair reported twice: %+v", found)
	}
}

func TestContradictionsTooFewMemories(t *testing.T) {
	checker, mgr := newTestChecker(t)

	seedIndexed(t, mgr, "only one memory", "semantic", "project", "only one memory", 0.5)

	found, err := checker.FindContradictions(context.Background(), "alice", 0.75, 10)
	if err != nil {
		t.Fatalf("contradictions: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil, got %+v", found)
	}
}

func TestBuildReport(t *testing.T) {
	checker, mgr := newTestChecker(t)
	ctx := context.Background()

	a := seedIndexed(t, mgr, "fact one about the project", "semantic", "project", "fact one about the project", 0.8)
	seedIndexed(t, mgr, "fact two about the workflow", "procedural", "workflow", "fact two about the workflow", 0.8)
	seedIndexed(t, mgr, "fact three about an event", "episodic", "event", "fact three about an event", 0.8)

	// One accessed memory keeps the unused ratio at 2/3.
	if err := mgr.Store().IncrementAccess(ctx, []string{a.MemoryID}); err != nil {
		t.Fatalf("access: %v", err)
	}

	report, err := checker.BuildReport(ctx, "alice", true, true)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Statistics.Total != 3 {
		t.Errorf("total = %d", report.Statistics.Total)
	}
	if len(report.ByCategory) != 3 {
		t.Errorf("by category = %v", report.ByCategory)
	}
	if report.ByCategory["semantic"].Count != 1 {
		t.Errorf("semantic = %+v", report.ByCategory["semantic"])
	}

	// avg importance 0.8 (no penalty), unused ratio 2/3 > 0.3 (-20),
	// no low importance, no contradictions.
	if report.HealthScore != 80 {
		t.Errorf("health score = %d, want 80", report.HealthScore)
	}
	if report.HealthStatus != "Good" {
		t.Errorf("status = %s", report.HealthStatus)
	}

	// Never-accessed memories with no access history count as stale.
	if len(report.StaleMemories) != 2 {
		t.Errorf("stale = %d, want 2", len(report.StaleMemories))
	}
}

func TestBuildReportEmptyUser(t *testing.T) {
	checker, _ := newTestChecker(t)

	report, err := checker.BuildReport(context.Background(), "nobody", true, true)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Statistics.Total != 0 {
		t.Errorf("total = %d", report.Statistics.Total)
	}
	if report.HealthScore != 80 {
		// avg importance 0 triggers the low-importance penalty only.
		t.Errorf("health score = %d", report.HealthScore)
	}
}

func TestApplyDecayDefaults(t *testing.T) {
	checker, mgr := newTestChecker(t)
	ctx := context.Background()

	seedIndexed(t, mgr, "never accessed fact", "semantic", "project", "never accessed fact", 0.8)

	res, err := checker.ApplyDecay(ctx, "alice", 0, 0)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if res.DecayRate != DefaultDecayRate || res.DaysInactive != DefaultDecayDays {
		t.Errorf("defaults not applied: %+v", res)
	}
	if res.MemoriesDecayed != 1 {
		t.Errorf("decayed = %d", res.MemoriesDecayed)
	}
}
