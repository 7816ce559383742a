package assembler

import (
	"context"

	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

const (
	// Items shorter than this many tokens are not worth promoting.
	checkpointMinTokens = 20

	// Items below this relevance are not worth promoting.
	checkpointMinRelevance = 0.3

	// Classified importance below this leaves the item in working memory.
	checkpointMinImportance = 0.4

	// Similarity above which a promoted item folds into an existing
	// memory instead of creating a new one.
	checkpointDedupThreshold = 0.9
)

// CheckpointResult reports what a checkpoint run did.
type CheckpointResult struct {
	MemoriesCreated int `json:"memories_created"`
	MemoriesUpdated int `json:"memories_updated"`
	TokensFreed     int `json:"working_memory_tokens_freed"`
	ItemsProcessed  int `json:"items_processed"`
}

// Checkpoint promotes worthwhile working memory items to long-term
// storage. Promoted items are removed from working memory; everything
// skipped (too short, low relevance, system content, low importance, or a
// failed classification) stays where it is.
func (a *Assembler) Checkpoint(ctx context.Context, sessionID, userID string) (*CheckpointResult, error) {
	items, err := a.mgr.Store().UnpinnedInOrder(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &CheckpointResult{}
	if len(items) == 0 {
		return result, nil
	}

	cls := a.mgr.Classifier()
	var processed []string

	for _, item := range items {
		if item.TokenCount < checkpointMinTokens || item.RelevanceScore < checkpointMinRelevance {
			continue
		}
		// System messages and retrieved memories are already stored.
		if item.ContentType == model.ContentSystem || item.ContentType == model.ContentRetrievedMemory {
			continue
		}
		if cls == nil {
			continue
		}

		verdict, err := cls.Classify(ctx, item.Content, "")
		if err != nil {
			continue
		}
		if verdict.Importance < checkpointMinImportance {
			continue
		}

		emb, err := a.mgr.Embedder().Embed(ctx, item.Content)
		if err != nil {
			continue
		}

		hits, err := a.mgr.Index().Search(ctx, userID, emb, 1, vector.Filter{})
		if err == nil && len(hits) > 0 && float64(hits[0].Similarity) > checkpointDedupThreshold {
			if err := a.mgr.Store().IncrementAccess(ctx, []string{hits[0].ID}); err != nil {
				continue
			}
			result.MemoriesUpdated++
		} else {
			mem := &model.Memory{
				UserID:        userID,
				Category:      verdict.Category,
				Subtype:       verdict.Subtype,
				Content:       item.Content,
				Embedding:     emb,
				Entities:      verdict.Entities,
				Importance:    verdict.Importance,
				IsTemporal:    verdict.IsTemporal,
				SourceSession: sessionID,
				SourceType:    model.SourceCheckpoint,
			}
			if err := a.mgr.Store().InsertMemory(ctx, mem); err != nil {
				continue
			}
			if err := a.mgr.Index().Upsert(ctx, userID, vector.Doc{
				ID:        mem.MemoryID,
				Content:   item.Content,
				Embedding: emb,
				Metadata:  map[string]string{"category": mem.Category, "subtype": mem.Subtype},
			}); err != nil {
				// An unindexed row is unreachable and the item, still in
				// working memory, would be promoted again as a duplicate.
				a.mgr.Store().SoftDeleteMemory(ctx, userID, mem.MemoryID)
				continue
			}
			result.MemoriesCreated++
		}

		processed = append(processed, item.ItemID)
		result.TokensFreed += item.TokenCount
	}

	if len(processed) > 0 {
		if err := a.mgr.Store().RemoveItems(ctx, sessionID, processed); err != nil {
			return nil, err
		}
	}
	result.ItemsProcessed = len(processed)

	return result, nil
}
