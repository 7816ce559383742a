package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/security"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

// ForgetAllConfirmation must be supplied verbatim to wipe a user's data.
const ForgetAllConfirmation = "CONFIRM_DELETE_ALL"

// ErrConfirmationRequired is returned when ForgetAll is called without the
// exact confirmation phrase.
var ErrConfirmationRequired = errors.New("confirmation required: pass " + ForgetAllConfirmation)

// UpdateParams holds the mutable memory fields. Nil fields are unchanged.
type UpdateParams struct {
	Content    *string
	Summary    *string
	Importance *float64
	Entities   []string
	Metadata   *string // raw JSON
}

// Update applies a partial update. New content goes through the same
// secret screening as a fresh store; a content change re-embeds and
// re-indexes the memory.
func (m *Manager) Update(ctx context.Context, userID, memoryID string, p UpdateParams) (*model.Memory, error) {
	if p.Content != nil {
		ok, msg, violations := security.Validate(*p.Content)
		if !ok {
			return nil, &security.ViolationError{Message: msg, Violations: violations}
		}
	}

	if err := m.store.UpdateMemory(ctx, userID, memoryID, store.UpdateMemoryParams{
		Content:    p.Content,
		Summary:    p.Summary,
		Importance: p.Importance,
		Entities:   p.Entities,
		Metadata:   p.Metadata,
	}); err != nil {
		return nil, err
	}

	mem, err := m.store.GetMemory(ctx, userID, memoryID)
	if err != nil {
		return nil, err
	}

	if p.Content != nil {
		emb, err := m.embedder.Embed(ctx, mem.Content)
		if err != nil {
			return nil, fmt.Errorf("re-embed: %w", err)
		}
		if err := m.index.Upsert(ctx, userID, vector.Doc{
			ID:        mem.MemoryID,
			Content:   mem.Content,
			Embedding: emb,
			Metadata:  map[string]string{"category": mem.Category, "subtype": mem.Subtype},
		}); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

// Forget soft-deletes a memory and drops it from the vector index.
func (m *Manager) Forget(ctx context.Context, userID, memoryID string) error {
	if err := m.store.SoftDeleteMemory(ctx, userID, memoryID); err != nil {
		return err
	}
	return m.index.Delete(ctx, userID, memoryID)
}

// ForgetAll wipes everything the user owns. It refuses to act without the
// exact confirmation phrase. Returns the number of long-term memories
// removed.
func (m *Manager) ForgetAll(ctx context.Context, userID, confirmation string) (int, error) {
	if confirmation != ForgetAllConfirmation {
		return 0, ErrConfirmationRequired
	}
	removed, err := m.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := m.index.DeleteAll(userID); err != nil {
		return removed, err
	}
	return removed, nil
}

// Supersede marks newID as replacing oldID and retires the old memory
// from both stores.
func (m *Manager) Supersede(ctx context.Context, userID, newID, oldID string) error {
	if err := m.store.SetSupersedes(ctx, userID, newID, oldID); err != nil {
		return err
	}
	return m.index.Delete(ctx, userID, oldID)
}

// Link creates a typed relationship between two memories.
func (m *Manager) Link(ctx context.Context, userID, fromID, toID, relation string, strength float64, bidirectional bool) error {
	return m.store.Link(ctx, userID, fromID, toID, relation, strength, bidirectional)
}

// Unlink removes a relationship.
func (m *Manager) Unlink(ctx context.Context, fromID, toID, relation string) error {
	return m.store.Unlink(ctx, fromID, toID, relation)
}

// Related lists a memory's outgoing links, strongest first.
func (m *Manager) Related(ctx context.Context, memoryID string, limit int) ([]model.Relationship, error) {
	return m.store.Related(ctx, memoryID, limit)
}
