package store

import (
	"context"
	"database/sql"
)

// MemoryStats summarizes a user's long-term memory population.
type MemoryStats struct {
	Total         int            `json:"total_memories"`
	AvgImportance float64        `json:"avg_importance"`
	AvgAccess     float64        `json:"avg_access_count"`
	NeverAccessed int            `json:"never_accessed"`
	LowImportance int            `json:"low_importance"`
	ByCategory    map[string]int `json:"by_category"`
	BySubtype     map[string]int `json:"by_subtype"`
}

// MemoryStatsFor computes aggregate stats over the user's live memories.
func (s *Store) MemoryStatsFor(ctx context.Context, userID string) (*MemoryStats, error) {
	stats := &MemoryStats{
		ByCategory: make(map[string]int),
		BySubtype:  make(map[string]int),
	}

	var avgImp, avgAcc sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(importance), AVG(access_count),
		        SUM(CASE WHEN access_count = 0 THEN 1 ELSE 0 END),
		        SUM(CASE WHEN importance < 0.3 THEN 1 ELSE 0 END)
		 FROM long_term_memories WHERE user_id = ? AND deleted_at IS NULL`, userID).
		Scan(&stats.Total, &avgImp, &avgAcc,
			nullCount{&stats.NeverAccessed}, nullCount{&stats.LowImportance})
	if err != nil {
		return nil, err
	}
	stats.AvgImportance = avgImp.Float64
	stats.AvgAccess = avgAcc.Float64

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, subtype, COUNT(*) FROM long_term_memories
		 WHERE user_id = ? AND deleted_at IS NULL
		 GROUP BY category, subtype`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cat, sub string
		var n int
		if err := rows.Scan(&cat, &sub, &n); err != nil {
			return nil, err
		}
		stats.ByCategory[cat] += n
		stats.BySubtype[cat+"."+sub] += n
	}
	return stats, rows.Err()
}

// CategoryStats aggregates one category's live memories.
type CategoryStats struct {
	Count         int     `json:"count"`
	AvgImportance float64 `json:"avg_importance"`
	AvgAccess     float64 `json:"avg_access"`
}

// CategoryStatsFor breaks down the user's live memories by category.
func (s *Store) CategoryStatsFor(ctx context.Context, userID string) (map[string]CategoryStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*), AVG(importance), AVG(access_count)
		 FROM long_term_memories WHERE user_id = ? AND deleted_at IS NULL
		 GROUP BY category`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]CategoryStats)
	for rows.Next() {
		var cat string
		var cs CategoryStats
		if err := rows.Scan(&cat, &cs.Count, &cs.AvgImportance, &cs.AvgAccess); err != nil {
			return nil, err
		}
		out[cat] = cs
	}
	return out, rows.Err()
}

// Stats is a whole-store overview for the CLI.
type Stats struct {
	Sessions      int `json:"sessions"`
	WorkingItems  int `json:"working_memory_items"`
	Memories      int `json:"long_term_memories"`
	Relationships int `json:"relationships"`
	AccessEvents  int `json:"access_events"`
}

// OverallStats counts rows across all tables.
func (s *Store) OverallStats(ctx context.Context) (*Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM session_contexts`, &st.Sessions},
		{`SELECT COUNT(*) FROM working_memory_items`, &st.WorkingItems},
		{`SELECT COUNT(*) FROM long_term_memories WHERE deleted_at IS NULL`, &st.Memories},
		{`SELECT COUNT(*) FROM memory_relationships`, &st.Relationships},
		{`SELECT COUNT(*) FROM memory_access_log`, &st.AccessEvents},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// nullCount scans a nullable SUM() into an int, treating NULL as zero.
type nullCount struct{ dest *int }

func (n nullCount) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*n.dest = int(v)
	case float64:
		*n.dest = int(v)
	default:
		*n.dest = 0
	}
	return nil
}
