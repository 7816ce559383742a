package store

import (
	"context"
	"time"
)

// LogAccess records a retrieval hit in the access log. Queries are
// truncated to 500 characters.
func (s *Store) LogAccess(ctx context.Context, memoryID, sessionID, userID, query string, similarity float64) error {
	if len(query) > 500 {
		query = query[:500]
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_access_log (memory_id, session_id, user_id, query, similarity, accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		memoryID, nullable(sessionID), userID, nullable(query), similarity,
		time.Now().UTC().Format(timeFormat))
	return err
}
