// Package assembler builds intent-weighted context windows from working
// and long-term memory, and checkpoints working memory into long-term
// storage.
package assembler

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"github.com/mnemo-dev/mnemo/internal/memory"
	"github.com/mnemo-dev/mnemo/internal/taxonomy"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

const (
	// Long-term candidates below this similarity are not considered.
	minCandidateSimilarity = 0.5

	// Candidates fetched per memory type.
	perTypeLimit = 5

	// Memory types whose share of the budget falls below this many
	// tokens are skipped outright.
	minTypeBudget = 50

	// Score multiplier per matched focus entity.
	focusBoostPerMatch = 0.3
)

// Assembler combines working and long-term memory under a token budget.
type Assembler struct {
	mgr *memory.Manager
}

// New creates an Assembler on top of a memory manager.
func New(mgr *memory.Manager) *Assembler {
	return &Assembler{mgr: mgr}
}

// Params holds parameters for context assembly.
type Params struct {
	SessionID     string
	UserID        string
	Query         string
	TokenBudget   int
	Intent        string   // optional hint, auto-detected when empty
	FocusEntities []string // "type:name" entities to boost
}

// Item is a single entry in the assembled context.
type Item struct {
	Source         string   `json:"source"` // "working_memory" or "long_term"
	ContentType    string   `json:"content_type,omitempty"`
	Category       string   `json:"memory_category,omitempty"`
	Subtype        string   `json:"memory_subtype,omitempty"`
	Content        string   `json:"content"`
	RelevanceScore float64  `json:"relevance_score"`
	TokenCount     int      `json:"token_count"`
	Entities       []string `json:"entities,omitempty"`
	WhyIncluded    string   `json:"why_included"`
	MemoryID       string   `json:"memory_id,omitempty"`
}

// Stats summarizes what went into the context.
type Stats struct {
	WorkingMemoryItems int            `json:"working_memory_items"`
	LongTermItems      int            `json:"long_term_items"`
	ByCategory         map[string]int `json:"by_category"`
	BySubtype          map[string]int `json:"by_subtype"`
	EntityBoostApplied bool           `json:"entity_boost_applied"`
	TypesFailed        []string       `json:"types_failed,omitempty"`
}

// Context is the assembled result.
type Context struct {
	Items          []Item  `json:"context_items"`
	TotalTokens    int     `json:"total_tokens"`
	BudgetUsedPct  float64 `json:"budget_used_pct"`
	DetectedIntent string  `json:"detected_intent"`
	Stats          Stats   `json:"retrieval_stats"`
}

type candidate struct {
	memoryID    string
	content     string
	category    string
	subtype     string
	entities    []string
	tokenCount  int
	similarity  float64
	importance  float64
	score       float64
	entityMatch bool
}

// Assemble builds a context window for the query. Working memory gets the
// intent profile's working share of the budget first; the remainder is
// filled with long-term memories scored by similarity, type weight, and
// importance.
func (a *Assembler) Assemble(ctx context.Context, p Params) (*Context, error) {
	if p.TokenBudget <= 0 {
		p.TokenBudget = 4000
	}

	intent := p.Intent
	if intent == "" {
		intent = a.detectIntent(ctx, p.Query)
	}
	weights := taxonomy.RetrievalWeights(intent)

	out := &Context{
		DetectedIntent: intent,
		Stats: Stats{
			ByCategory:         make(map[string]int),
			BySubtype:          make(map[string]int),
			EntityBoostApplied: len(p.FocusEntities) > 0,
		},
	}

	// Phase 1: working memory, within its share of the budget. A share
	// that floors to zero admits nothing; it is not an unbounded get.
	workingBudget := int(float64(p.TokenBudget) * taxonomy.WorkingFraction(weights))
	if workingBudget > 0 {
		items, used, _, err := a.mgr.Store().GetItems(ctx, p.SessionID, workingBudget)
		if err != nil {
			return nil, fmt.Errorf("working memory: %w", err)
		}
		for _, item := range items {
			out.Items = append(out.Items, Item{
				Source:         "working_memory",
				ContentType:    item.ContentType,
				Content:        item.Content,
				RelevanceScore: item.RelevanceScore,
				TokenCount:     item.TokenCount,
				WhyIncluded:    "Recent " + item.ContentType + " from current session",
			})
			out.Stats.WorkingMemoryItems++
		}
		out.TotalTokens = used
	}

	// Phase 2: long-term candidates per weighted memory type. Without a
	// query embedding there is nothing to search; the working-memory
	// context still stands on its own.
	remaining := p.TokenBudget - out.TotalTokens
	queryEmb, err := a.mgr.Embedder().Embed(ctx, p.Query)
	if err != nil {
		for _, w := range weights {
			if w.Key != taxonomy.WeightKeyWorking {
				out.Stats.TypesFailed = append(out.Stats.TypesFailed, w.Key)
			}
		}
		out.BudgetUsedPct = round2(float64(out.TotalTokens) / float64(p.TokenBudget) * 100)
		return out, nil
	}

	var candidates []candidate
	for _, w := range weights {
		if w.Key == taxonomy.WeightKeyWorking {
			continue
		}
		parts := strings.SplitN(w.Key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		category, subtype := parts[0], parts[1]

		if int(float64(remaining)*w.Fraction) < minTypeBudget {
			continue
		}

		hits, err := a.mgr.Index().Search(ctx, p.UserID, queryEmb, perTypeLimit, vector.Filter{
			Category: category,
			Subtype:  subtype,
		})
		if err != nil {
			// One bad type should not sink the whole assembly.
			out.Stats.TypesFailed = append(out.Stats.TypesFailed, w.Key)
			continue
		}

		for _, h := range hits {
			sim := float64(h.Similarity)
			if sim < minCandidateSimilarity {
				continue
			}
			mem, err := a.mgr.Store().GetMemory(ctx, p.UserID, h.ID)
			if err != nil {
				continue
			}
			candidates = append(candidates, candidate{
				memoryID:   mem.MemoryID,
				content:    mem.Content,
				category:   category,
				subtype:    subtype,
				entities:   mem.Entities,
				tokenCount: a.mgr.Counter().Count(mem.Content),
				similarity: sim,
				importance: mem.Importance,
				score:      sim * w.Fraction * (1 + mem.Importance),
			})
		}
	}

	// Focus-entity boost.
	if len(p.FocusEntities) > 0 {
		focus := make(map[string]bool, len(p.FocusEntities))
		for _, e := range p.FocusEntities {
			focus[e] = true
		}
		for i := range candidates {
			matches := 0
			for _, e := range candidates[i].entities {
				if focus[e] {
					matches++
				}
			}
			if matches > 0 {
				candidates[i].score *= 1 + focusBoostPerMatch*float64(matches)
				candidates[i].entityMatch = true
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	// Phase 3: greedy fill with content-prefix dedup.
	seen := make(map[uint64]bool)
	var included []candidate
	for _, c := range candidates {
		if out.TotalTokens+c.tokenCount > p.TokenBudget {
			continue
		}
		h := contentHash(c.content)
		if seen[h] {
			continue
		}
		seen[h] = true

		out.Items = append(out.Items, Item{
			Source:         "long_term",
			Category:       c.category,
			Subtype:        c.subtype,
			Content:        c.content,
			RelevanceScore: round3(c.score),
			TokenCount:     c.tokenCount,
			Entities:       c.entities,
			WhyIncluded:    whyIncluded(c),
			MemoryID:       c.memoryID,
		})
		out.TotalTokens += c.tokenCount
		out.Stats.LongTermItems++
		out.Stats.ByCategory[c.category]++
		out.Stats.BySubtype[c.category+"."+c.subtype]++
		included = append(included, c)
	}

	out.BudgetUsedPct = round2(float64(out.TotalTokens) / float64(p.TokenBudget) * 100)

	a.logAccesses(p, included)

	return out, nil
}

func (a *Assembler) detectIntent(ctx context.Context, query string) string {
	cls := a.mgr.Classifier()
	if cls == nil {
		return taxonomy.IntentGeneral
	}
	intent, err := cls.DetectIntent(ctx, query)
	if err != nil {
		return taxonomy.IntentGeneral
	}
	return intent
}

func (a *Assembler) logAccesses(p Params, included []candidate) {
	if len(included) == 0 {
		return
	}
	entries := make([]candidate, len(included))
	copy(entries, included)
	go func() {
		ctx := context.Background()
		for _, c := range entries {
			a.mgr.Store().LogAccess(ctx, c.memoryID, p.SessionID, p.UserID, p.Query, c.similarity)
		}
	}()
}

func whyIncluded(c candidate) string {
	parts := []string{c.category + "." + c.subtype + " memory"}
	if c.entityMatch {
		parts = append(parts, "entity match")
	}
	if c.score > 0.8 {
		parts = append(parts, "highly relevant")
	} else if c.score > 0.5 {
		parts = append(parts, "relevant")
	}
	return strings.Join(parts, " | ")
}

// contentHash fingerprints the first 200 bytes of content for dedup.
func contentHash(content string) uint64 {
	if len(content) > 200 {
		content = content[:200]
	}
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
