// Package quality evaluates memory health: contradiction detection,
// staleness, importance decay, and an aggregate health score.
package quality

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mnemo-dev/mnemo/internal/memory"
	"github.com/mnemo-dev/mnemo/internal/store"
	"github.com/mnemo-dev/mnemo/internal/vector"
)

const (
	// DefaultContradictionThreshold is the minimum similarity for two
	// memories to count as covering the same topic.
	DefaultContradictionThreshold = 0.75

	// Word-overlap ratio above which similar memories are considered
	// restatements rather than contradictions.
	maxContradictionOverlap = 0.5

	// DefaultDecayRate is the per-run importance multiplier.
	DefaultDecayRate = 0.95

	// DefaultDecayDays is how long a memory can go unaccessed before
	// decay applies.
	DefaultDecayDays = 7

	staleAfterDays = 30
	staleMaxAccess = 2
)

// Checker runs quality analyses over a user's memories.
type Checker struct {
	mgr *memory.Manager
}

// New creates a Checker on top of a memory manager.
func New(mgr *memory.Manager) *Checker {
	return &Checker{mgr: mgr}
}

// ContradictionSide is one memory in a contradicting pair.
type ContradictionSide struct {
	ID      string `json:"id"`
	Preview string `json:"content"`
}

// Contradiction is a pair of same-topic memories with diverging content.
type Contradiction struct {
	Newer          ContradictionSide `json:"newer_memory"`
	Older          ContradictionSide `json:"older_memory"`
	Similarity     float64           `json:"similarity"`
	Recommendation string            `json:"recommendation"`
}

// FindContradictions scans the user's most recent memories for pairs that
// are semantically close but textually divergent. The newer memory is
// recommended as the superseding one.
func (c *Checker) FindContradictions(ctx context.Context, userID string, threshold float64, limit int) ([]Contradiction, error) {
	if threshold <= 0 {
		threshold = DefaultContradictionThreshold
	}
	if limit <= 0 {
		limit = 10
	}

	recent, err := c.mgr.Store().Recent(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	if len(recent) < 2 {
		return nil, nil
	}

	checked := recent
	if len(checked) > 10 {
		checked = checked[:10]
	}

	var contradictions []Contradiction
	seenPairs := make(map[string]bool)

	for _, mem := range checked {
		emb, err := c.mgr.Embedder().Embed(ctx, mem.Content)
		if err != nil {
			continue
		}

		// +1 because the memory itself comes back as its own best match.
		hits, err := c.mgr.Index().Search(ctx, userID, emb, 4, vector.Filter{Category: mem.Category})
		if err != nil {
			continue
		}

		for _, h := range hits {
			if h.ID == mem.MemoryID {
				continue
			}
			sim := float64(h.Similarity)
			if sim < threshold {
				continue
			}

			key := pairKey(mem.MemoryID, h.ID)
			if seenPairs[key] {
				continue
			}
			seenPairs[key] = true

			other, err := c.mgr.Store().GetMemory(ctx, userID, h.ID)
			if err != nil {
				continue
			}
			if wordOverlap(mem.Content, other.Content) >= maxContradictionOverlap {
				continue
			}

			newer, older := &mem, other
			if other.CreatedAt.After(mem.CreatedAt) {
				newer, older = other, &mem
			}
			contradictions = append(contradictions, Contradiction{
				Newer:          ContradictionSide{ID: newer.MemoryID, Preview: preview(newer.Content, 150)},
				Older:          ContradictionSide{ID: older.MemoryID, Preview: preview(older.Content, 150)},
				Similarity:     round4(sim),
				Recommendation: fmt.Sprintf("Review if %s supersedes %s", newer.MemoryID, older.MemoryID),
			})
			if len(contradictions) >= limit {
				return contradictions, nil
			}
		}
	}

	return contradictions, nil
}

// StaleMemory is a memory that has not earned its keep.
type StaleMemory struct {
	MemoryID    string  `json:"memory_id"`
	Preview     string  `json:"content_preview"`
	Category    string  `json:"category"`
	Importance  float64 `json:"importance"`
	AccessCount int     `json:"access_count"`
}

// Report is the full quality report for a user.
type Report struct {
	UserID         string                         `json:"user_id"`
	GeneratedAt    time.Time                      `json:"generated_at"`
	Statistics     *store.MemoryStats             `json:"statistics"`
	ByCategory     map[string]store.CategoryStats `json:"by_category"`
	StaleMemories  []StaleMemory                  `json:"stale_memories,omitempty"`
	Contradictions []Contradiction                `json:"potential_contradictions,omitempty"`
	HealthScore    int                            `json:"health_score"`
	HealthStatus   string                         `json:"health_status"`
}

// BuildReport assembles the quality report. Contradiction scanning is the
// expensive part and can be disabled.
func (c *Checker) BuildReport(ctx context.Context, userID string, includeContradictions, includeStale bool) (*Report, error) {
	report := &Report{
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
	}

	stats, err := c.mgr.Store().MemoryStatsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.Statistics = stats

	byCat, err := c.mgr.Store().CategoryStatsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.ByCategory = byCat

	if includeStale {
		cutoff := time.Now().UTC().AddDate(0, 0, -staleAfterDays)
		stale, err := c.mgr.Store().Stale(ctx, userID, cutoff, staleMaxAccess, 5)
		if err != nil {
			return nil, err
		}
		for _, m := range stale {
			report.StaleMemories = append(report.StaleMemories, StaleMemory{
				MemoryID:    m.MemoryID,
				Preview:     preview(m.Content, 100),
				Category:    m.Category,
				Importance:  m.Importance,
				AccessCount: m.AccessCount,
			})
		}
	}

	if includeContradictions {
		contradictions, err := c.FindContradictions(ctx, userID, DefaultContradictionThreshold, 5)
		if err != nil {
			return nil, err
		}
		report.Contradictions = contradictions
	}

	report.HealthScore = healthScore(stats, len(report.Contradictions))
	switch {
	case report.HealthScore >= 90:
		report.HealthStatus = "Excellent"
	case report.HealthScore >= 70:
		report.HealthStatus = "Good"
	case report.HealthScore >= 50:
		report.HealthStatus = "Fair"
	default:
		report.HealthStatus = "Needs Attention"
	}

	return report, nil
}

// DecayResult reports a decay run.
type DecayResult struct {
	MemoriesDecayed int     `json:"memories_decayed"`
	DecayRate       float64 `json:"decay_rate"`
	DaysInactive    int     `json:"days_inactive_threshold"`
}

// ApplyDecay lowers the importance of memories not accessed within
// daysInactive days. Zero arguments take the defaults.
func (c *Checker) ApplyDecay(ctx context.Context, userID string, rate float64, daysInactive int) (*DecayResult, error) {
	if rate <= 0 || rate >= 1 {
		rate = DefaultDecayRate
	}
	if daysInactive <= 0 {
		daysInactive = DefaultDecayDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysInactive)

	affected, err := c.mgr.Store().ApplyDecay(ctx, userID, cutoff, rate)
	if err != nil {
		return nil, err
	}
	return &DecayResult{
		MemoriesDecayed: affected,
		DecayRate:       rate,
		DaysInactive:    daysInactive,
	}, nil
}

func healthScore(stats *store.MemoryStats, contradictions int) int {
	score := 100

	if stats.AvgImportance < 0.5 {
		score -= 20
	} else if stats.AvgImportance < 0.7 {
		score -= 10
	}

	if stats.Total > 0 {
		unusedRatio := float64(stats.NeverAccessed) / float64(stats.Total)
		if unusedRatio > 0.3 {
			score -= 20
		} else if unusedRatio > 0.1 {
			score -= 10
		}

		lowRatio := float64(stats.LowImportance) / float64(stats.Total)
		if lowRatio > 0.2 {
			score -= 15
		}
	}

	if contradictions > 10 {
		score -= 15
	} else if contradictions > 5 {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	return score
}

// wordOverlap computes the Jaccard similarity of the two contents' word
// sets.
func wordOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	union := len(setB)
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func pairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "|" + ids[1]
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func round4(f float64) float64 { return math.Round(f*10000) / 10000 }
