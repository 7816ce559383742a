// Package vector provides an embedded vector index over chromem-go with
// per-user collections for namespace isolation.
package vector

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Doc is a single entry in the index. Metadata carries the fields used
// for scoped search (category, subtype) plus anything the caller adds.
type Doc struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Hit is one search result.
type Hit struct {
	ID         string
	Content    string
	Similarity float32
	Metadata   map[string]string
}

// Filter scopes a search. Empty fields are unconstrained.
type Filter struct {
	Category string
	Subtype  string
}

// Index wraps a chromem database. Each user gets an isolated collection.
type Index struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory index.
func New() *Index {
	return &Index{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

// NewPersistent creates an index backed by an on-disk gob store.
func NewPersistent(path string) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	return &Index{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (ix *Index) collection(userID string) (*chromem.Collection, error) {
	ix.mu.RLock()
	col, ok := ix.collections[userID]
	ix.mu.RUnlock()
	if ok {
		return col, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Re-check after taking the write lock.
	if col, ok := ix.collections[userID]; ok {
		return col, nil
	}

	name := "user_" + userID
	if userID == "" {
		name = "global"
	}
	col, err := ix.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	ix.collections[userID] = col
	return col, nil
}

// Upsert writes a document into the user's collection. An existing
// document with the same ID is replaced.
func (ix *Index) Upsert(ctx context.Context, userID string, doc Doc) error {
	col, err := ix.collection(userID)
	if err != nil {
		return err
	}
	err = col.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", doc.ID, err)
	}
	return nil
}

// Search returns up to limit documents by cosine similarity, most similar
// first. The filter's non-empty fields are matched against metadata.
func (ix *Index) Search(ctx context.Context, userID string, embedding []float32, limit int, filter Filter) ([]Hit, error) {
	col, err := ix.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	if n := col.Count(); n < limit {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}

	where := map[string]string{}
	if filter.Category != "" {
		where["category"] = filter.Category
	}
	if filter.Subtype != "" {
		where["subtype"] = filter.Subtype
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		})
	}
	return hits, nil
}

// Delete removes documents by ID from the user's collection.
func (ix *Index) Delete(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := ix.collection(userID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	return nil
}

// DeleteAll drops every document owned by the user.
func (ix *Index) DeleteAll(userID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	name := "user_" + userID
	if userID == "" {
		name = "global"
	}
	if err := ix.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	delete(ix.collections, userID)
	return nil
}

// Count reports how many documents the user's collection holds.
func (ix *Index) Count(userID string) (int, error) {
	col, err := ix.collection(userID)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}
