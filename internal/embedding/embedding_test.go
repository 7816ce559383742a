package embedding

import (
	"context"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := Vector{1, 0, 0}
	b := Vector{1, 0, 0}
	c := Vector{0, 1, 0}

	if sim := CosineSimilarity(a, b); sim < 0.999 {
		t.Errorf("identical vectors: got %f, want ~1.0", sim)
	}
	if sim := CosineSimilarity(a, c); sim > 0.001 {
		t.Errorf("orthogonal vectors: got %f, want ~0.0", sim)
	}
	if sim := CosineSimilarity(a, Vector{1, 0}); sim != 0 {
		t.Errorf("mismatched dims: got %f, want 0", sim)
	}
	if sim := CosineSimilarity(nil, nil); sim != 0 {
		t.Errorf("empty vectors: got %f, want 0", sim)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder(384)
	ctx := context.Background()

	a1, _ := m.Embed(ctx, "the users table lives in prod_db")
	a2, _ := m.Embed(ctx, "the users table lives in prod_db")
	b, _ := m.Embed(ctx, "completely unrelated content")

	if CosineSimilarity(a1, a2) < 0.999 {
		t.Error("same text should embed identically")
	}
	if CosineSimilarity(a1, b) > 0.99 {
		t.Error("different texts should not embed identically")
	}
	if len(a1) != 384 || m.Dims() != 384 {
		t.Errorf("unexpected dims: %d", len(a1))
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	m := NewMockEmbedder(64)
	v, _ := m.Embed(context.Background(), "anything")

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("expected unit vector, squared norm = %f", norm)
	}
}

type countingEmbedder struct {
	inner Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dims() int { return c.inner.Dims() }

func TestCachedEmbedder(t *testing.T) {
	counting := &countingEmbedder{inner: NewMockEmbedder(64)}
	cached, err := NewCachedEmbedder(counting, 16)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	ctx := context.Background()

	v1, err := cached.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	cached.Wait()

	v2, _ := cached.Embed(ctx, "hello")
	if counting.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", counting.calls)
	}
	if CosineSimilarity(v1, v2) < 0.999 {
		t.Error("cached vector differs from original")
	}

	cached.Embed(ctx, "different")
	if counting.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", counting.calls)
	}
}

func TestEmbedBatchFallback(t *testing.T) {
	m := NewMockEmbedder(32)
	vectors, err := EmbedBatch(context.Background(), m, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}
