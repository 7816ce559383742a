// Package memory orchestrates long-term memory: classification, secret
// screening, embedding, deduplication, and relationship linking on top of
// the SQLite store and the vector index.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnemo-dev/mnemo/internal/classify"
	"github.com/mnemo-dev/mnemo/internal/embedding"
	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/security"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/taxonomy"
	"github.com/mnemo-dev/mnemo/internal/token"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

const (
	// Similarity at or above which a new memory is folded into an
	// existing one instead of being inserted.
	dedupThreshold = 0.95

	// Similarity at or above which same-category memories are
	// automatically linked.
	autoLinkThreshold = 0.75

	maxAutoLinks = 5

	// Content longer than this many tokens gets a generated summary.
	summaryTokenThreshold = 50
)

// Manager ties the memory pipeline together.
type Manager struct {
	store      *store.Store
	index      *vector.Index
	embedder   embedding.Embedder
	classifier classify.Classifier
	counter    token.Counter
}

// New creates a Manager. The classifier may be nil, in which case
// auto-classification is skipped and callers must provide categories.
func New(s *store.Store, ix *vector.Index, emb embedding.Embedder, cls classify.Classifier, counter token.Counter) *Manager {
	if counter == nil {
		counter = token.Default()
	}
	return &Manager{
		store:      s,
		index:      ix,
		embedder:   emb,
		classifier: cls,
		counter:    counter,
	}
}

// Store returns the underlying SQLite store.
func (m *Manager) Store() *store.Store { return m.store }

// Index returns the underlying vector index.
func (m *Manager) Index() *vector.Index { return m.index }

// Embedder returns the configured embedder.
func (m *Manager) Embedder() embedding.Embedder { return m.embedder }

// Classifier returns the configured classifier, possibly nil.
func (m *Manager) Classifier() classify.Classifier { return m.classifier }

// Counter returns the token counter.
func (m *Manager) Counter() token.Counter { return m.counter }

// StoreParams holds parameters for storing a memory.
type StoreParams struct {
	UserID     string
	Content    string
	Category   string // empty triggers auto-classification
	Subtype    string
	Importance float64 // 0 takes the classifier's verdict (or 0.5)
	Entities   []string
	IsTemporal bool
	Metadata   string // raw JSON
	SessionID  string
}

// StoreResult reports what happened to a stored memory.
type StoreResult struct {
	Memory     *model.Memory        `json:"memory"`
	Action     string               `json:"action"` // "created" or "updated_existing"
	Violations []security.Violation `json:"violations,omitempty"`
	AutoLinked int                  `json:"auto_linked,omitempty"`
}

// StoreMemory runs the full ingestion pipeline: secret screening,
// classification, entity extraction, summarization, question augmentation,
// embedding, deduplication, and auto-linking.
func (m *Manager) StoreMemory(ctx context.Context, p StoreParams) (*StoreResult, error) {
	ok, msg, violations := security.Validate(p.Content)
	if !ok {
		return nil, &security.ViolationError{Message: msg, Violations: violations}
	}

	category, subtype := p.Category, p.Subtype
	importance := p.Importance
	entities := p.Entities
	isTemporal := p.IsTemporal
	summary := ""

	if (category == "" || subtype == "") && m.classifier != nil {
		cls, err := m.classifier.Classify(ctx, p.Content, "")
		if err == nil {
			category, subtype = cls.Category, cls.Subtype
			if importance == 0 {
				importance = cls.Importance
			}
			if len(entities) == 0 {
				entities = cls.Entities
			}
			isTemporal = isTemporal || cls.IsTemporal
			summary = cls.Summary
		}
	}
	if category == "" || subtype == "" {
		category, subtype = taxonomy.Semantic, "domain"
	}
	if importance == 0 {
		importance = 0.5
	}
	if err := taxonomy.ValidateSubtype(category, subtype); err != nil {
		return nil, err
	}

	if len(entities) == 0 && m.classifier != nil {
		if extracted, err := m.classifier.ExtractEntities(ctx, p.Content); err == nil {
			entities = extracted
		}
	}

	if summary == "" && m.classifier != nil && m.counter.Count(p.Content) > summaryTokenThreshold {
		if s, err := m.classifier.Summarize(ctx, p.Content, 50); err == nil {
			summary = s
		}
	}

	augmented := p.Content
	if m.classifier != nil {
		if questions, err := m.classifier.HypotheticalQuestions(ctx, p.Content); err == nil && len(questions) > 0 {
			augmented = p.Content + "\n\nQuestions this answers: " + strings.Join(questions, " ")
		}
	}

	emb, err := m.embedder.Embed(ctx, augmented)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	// Near-duplicate in the same bucket: fold into the existing memory.
	hits, err := m.index.Search(ctx, p.UserID, emb, 1, vector.Filter{Category: category, Subtype: subtype})
	if err == nil && len(hits) > 0 && hits[0].Similarity >= dedupThreshold {
		existing, err := m.store.GetMemory(ctx, p.UserID, hits[0].ID)
		if err == nil {
			if err := m.store.IncrementAccess(ctx, []string{existing.MemoryID}); err != nil {
				return nil, err
			}
			existing.AccessCount++
			return &StoreResult{
				Memory:     existing,
				Action:     "updated_existing",
				Violations: violations,
			}, nil
		}
	}

	mem := &model.Memory{
		UserID:        p.UserID,
		Category:      category,
		Subtype:       subtype,
		Content:       p.Content,
		Summary:       summary,
		Embedding:     emb,
		Entities:      entities,
		Importance:    importance,
		IsTemporal:    isTemporal,
		Metadata:      p.Metadata,
		SourceSession: p.SessionID,
		SourceType:    model.SourceConversation,
	}
	if err := m.store.InsertMemory(ctx, mem); err != nil {
		return nil, err
	}

	if err := m.index.Upsert(ctx, p.UserID, vector.Doc{
		ID:        mem.MemoryID,
		Content:   augmented,
		Embedding: emb,
		Metadata:  map[string]string{"category": category, "subtype": subtype},
	}); err != nil {
		return nil, err
	}

	linked := m.autoLink(ctx, p.UserID, mem, emb)

	return &StoreResult{
		Memory:     mem,
		Action:     "created",
		Violations: violations,
		AutoLinked: linked,
	}, nil
}

// autoLink connects the new memory to highly similar memories in the same
// category. Failures are non-fatal.
func (m *Manager) autoLink(ctx context.Context, userID string, mem *model.Memory, emb []float32) int {
	hits, err := m.index.Search(ctx, userID, emb, maxAutoLinks+1, vector.Filter{Category: mem.Category})
	if err != nil {
		return 0
	}

	linked := 0
	for _, h := range hits {
		if h.ID == mem.MemoryID || h.Similarity < autoLinkThreshold {
			continue
		}
		if linked >= maxAutoLinks {
			break
		}
		if err := m.store.Link(ctx, userID, mem.MemoryID, h.ID, "related_to", float64(h.Similarity), true); err != nil {
			continue
		}
		linked++
	}
	return linked
}
