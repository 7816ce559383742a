package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mnemo-dev/mnemo/internal/model"
)

// Link creates a typed relationship between two memories the user owns.
// Symmetric kinds (related_to, contradicts) get a reverse row when
// bidirectional is set.
func (s *Store) Link(ctx context.Context, userID, fromID, toID, relation string, strength float64, bidirectional bool) error {
	if !model.ValidRelationships[relation] {
		return fmt.Errorf("invalid relationship %q", relation)
	}
	if _, err := s.GetMemory(ctx, userID, fromID); err != nil {
		return fmt.Errorf("from memory: %w", err)
	}
	if _, err := s.GetMemory(ctx, userID, toID); err != nil {
		return fmt.Errorf("to memory: %w", err)
	}
	if strength <= 0 {
		strength = 1.0
	}

	now := time.Now().UTC().Format(timeFormat)
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO memory_relationships (from_id, to_id, relation, strength, created_at)
		 VALUES (?, ?, ?, ?, ?)`, fromID, toID, relation, strength, now); err != nil {
		return fmt.Errorf("insert link: %w", err)
	}

	if bidirectional && model.SymmetricRelationships[relation] {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO memory_relationships (from_id, to_id, relation, strength, created_at)
			 VALUES (?, ?, ?, ?, ?)`, toID, fromID, relation, strength, now); err != nil {
			return fmt.Errorf("insert reverse link: %w", err)
		}
	}
	return nil
}

// Unlink removes a relationship. Empty relation removes all kinds between
// the pair. The reverse row of a symmetric kind is removed too.
func (s *Store) Unlink(ctx context.Context, fromID, toID, relation string) error {
	if relation == "" {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM memory_relationships
			 WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)`,
			fromID, toID, toID, fromID)
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_relationships WHERE from_id = ? AND to_id = ? AND relation = ?`,
		fromID, toID, relation); err != nil {
		return err
	}
	if model.SymmetricRelationships[relation] {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM memory_relationships WHERE from_id = ? AND to_id = ? AND relation = ?`,
			toID, fromID, relation); err != nil {
			return err
		}
	}
	return nil
}

// Related returns outgoing relationships from a memory, strongest first.
// Links whose target has been deleted are excluded.
func (s *Store) Related(ctx context.Context, memoryID string, limit int) ([]model.Relationship, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.from_id, r.to_id, r.relation, r.strength, r.created_at
		 FROM memory_relationships r
		 JOIN long_term_memories m ON m.memory_id = r.to_id
		 WHERE r.from_id = ? AND m.deleted_at IS NULL
		 ORDER BY r.strength DESC
		 LIMIT ?`, memoryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.Relationship
	for rows.Next() {
		var r model.Relationship
		var createdAt string
		if err := rows.Scan(&r.FromID, &r.ToID, &r.Relation, &r.Strength, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		links = append(links, r)
	}
	return links, rows.Err()
}
