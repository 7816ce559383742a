package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mnemo-dev/mnemo/internal/model"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

// RecallParams holds parameters for semantic retrieval.
type RecallParams struct {
	UserID         string
	Query          string
	Limit          int     // default 5
	Category       string  // optional filter
	Subtype        string  // optional filter
	MinSimilarity  float64 // default 0.2
	SessionID      string  // recorded in the access log
	IncludeRelated bool
}

// Recalled is a memory hit with its retrieval scores.
type Recalled struct {
	model.Memory
	Similarity          float64        `json:"similarity"`
	EffectiveSimilarity float64        `json:"effective_similarity"`
	EntityMatches       int            `json:"entity_matches,omitempty"`
	Related             []model.Memory `json:"related,omitempty"`
}

// RecallBreakdown summarizes where the hits came from.
type RecallBreakdown struct {
	ByCategory    map[string]int `json:"by_category"`
	BySubtype     map[string]int `json:"by_subtype"`
	EntityMatches int            `json:"entity_matches"`
}

// RecallResult is the outcome of a recall query.
type RecallResult struct {
	Memories  []Recalled      `json:"memories"`
	Breakdown RecallBreakdown `json:"breakdown"`
}

const entityBoostPerMatch = 0.2

// Recall retrieves memories by semantic similarity to the query. Hits
// whose entities appear in the query text are boosted, capped at a
// similarity of 1.0. Access counts are bumped and an access log entry is
// written for each hit.
func (m *Manager) Recall(ctx context.Context, p RecallParams) (*RecallResult, error) {
	if p.Limit <= 0 {
		p.Limit = 5
	}
	if p.MinSimilarity == 0 {
		p.MinSimilarity = 0.2
	}

	result := &RecallResult{
		Breakdown: RecallBreakdown{
			ByCategory: make(map[string]int),
			BySubtype:  make(map[string]int),
		},
	}

	emb, err := m.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	count, err := m.index.Count(p.UserID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return result, nil
	}

	// Over-fetch so boosting can reorder beyond the requested page.
	topK := p.Limit * 3
	hits, err := m.index.Search(ctx, p.UserID, emb, topK, vector.Filter{
		Category: p.Category,
		Subtype:  p.Subtype,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hits))
	simByID := make(map[string]float64, len(hits))
	for _, h := range hits {
		sim := float64(h.Similarity)
		if sim < p.MinSimilarity {
			continue
		}
		ids = append(ids, h.ID)
		simByID[h.ID] = sim
	}
	if len(ids) == 0 {
		return result, nil
	}

	memories, err := m.store.GetMemories(ctx, p.UserID, ids)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(p.Query)
	recalled := make([]Recalled, 0, len(memories))
	for _, mem := range memories {
		sim := simByID[mem.MemoryID]
		matches := countEntityMatches(queryLower, mem.Entities)
		effective := sim * (1 + entityBoostPerMatch*float64(matches))
		if effective > 1.0 {
			effective = 1.0
		}
		recalled = append(recalled, Recalled{
			Memory:              mem,
			Similarity:          sim,
			EffectiveSimilarity: effective,
			EntityMatches:       matches,
		})
	}

	sort.Slice(recalled, func(i, j int) bool {
		return recalled[i].EffectiveSimilarity > recalled[j].EffectiveSimilarity
	})
	if len(recalled) > p.Limit {
		recalled = recalled[:p.Limit]
	}

	accessed := make([]string, 0, len(recalled))
	for _, r := range recalled {
		accessed = append(accessed, r.MemoryID)
		result.Breakdown.ByCategory[r.Category]++
		result.Breakdown.BySubtype[r.Category+"."+r.Subtype]++
		if r.EntityMatches > 0 {
			result.Breakdown.EntityMatches++
		}
	}
	if err := m.store.IncrementAccess(ctx, accessed); err != nil {
		return nil, err
	}
	m.logAccesses(p, recalled)

	if p.IncludeRelated {
		m.attachRelated(ctx, p.UserID, recalled)
	}

	result.Memories = recalled
	return result, nil
}

// logAccesses writes access log rows without blocking the caller.
func (m *Manager) logAccesses(p RecallParams, recalled []Recalled) {
	entries := make([]Recalled, len(recalled))
	copy(entries, recalled)
	go func() {
		ctx := context.Background()
		for _, r := range entries {
			m.store.LogAccess(ctx, r.MemoryID, p.SessionID, p.UserID, p.Query, r.Similarity)
		}
	}()
}

// attachRelated adds up to 3 linked memories per hit, strongest links
// first, without repeating a memory across hits.
func (m *Manager) attachRelated(ctx context.Context, userID string, recalled []Recalled) {
	seen := make(map[string]bool, len(recalled))
	for _, r := range recalled {
		seen[r.MemoryID] = true
	}

	for i := range recalled {
		links, err := m.store.Related(ctx, recalled[i].MemoryID, 10)
		if err != nil {
			continue
		}
		for _, link := range links {
			if len(recalled[i].Related) >= 3 {
				break
			}
			if seen[link.ToID] {
				continue
			}
			mem, err := m.store.GetMemory(ctx, userID, link.ToID)
			if err != nil {
				continue
			}
			seen[link.ToID] = true
			recalled[i].Related = append(recalled[i].Related, *mem)
		}
	}
}

// countEntityMatches counts stored entities whose name appears in the
// query. Entities use the "type:name" form; the name part is matched.
func countEntityMatches(queryLower string, entities []string) int {
	matches := 0
	for _, e := range entities {
		name := e
		if idx := strings.Index(e, ":"); idx >= 0 {
			name = e[idx+1:]
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(queryLower, name) {
			matches++
		}
	}
	return matches
}
