package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mnemo-dev/mnemo/internal/model"
)

// ErrMemoryNotFound is returned when a memory does not exist or belongs
// to another user.
var ErrMemoryNotFound = errors.New("memory not found")

const memoryColumns = `memory_id, user_id, category, subtype, content, summary, entities,
	importance, access_count, decay_factor, is_temporal, event_time, metadata,
	supersedes, source_session, source_type, created_at, updated_at, last_accessed, deleted_at`

// InsertMemory stores a new long-term memory row. An empty MemoryID is
// assigned; timestamps are set to now.
func (s *Store) InsertMemory(ctx context.Context, m *model.Memory) error {
	if m.MemoryID == "" {
		m.MemoryID = s.newID()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.DecayFactor == 0 {
		m.DecayFactor = 1.0
	}
	if m.SourceType == "" {
		m.SourceType = model.SourceConversation
	}

	var entitiesJSON *string
	if len(m.Entities) > 0 {
		b, _ := json.Marshal(m.Entities)
		v := string(b)
		entitiesJSON = &v
	}

	var eventTime *string
	if m.EventTime != nil {
		v := m.EventTime.Format(timeFormat)
		eventTime = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO long_term_memories
		 (memory_id, user_id, category, subtype, content, summary, entities, importance,
		  access_count, decay_factor, is_temporal, event_time, metadata, supersedes,
		  source_session, source_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MemoryID, m.UserID, m.Category, m.Subtype, m.Content, nullable(m.Summary),
		entitiesJSON, m.Importance, m.AccessCount, m.DecayFactor, boolInt(m.IsTemporal),
		eventTime, nullable(m.Metadata), nullable(m.Supersedes), nullable(m.SourceSession),
		m.SourceType, now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// GetMemory fetches one live memory owned by the user.
func (s *Store) GetMemory(ctx context.Context, userID, memoryID string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM long_term_memories
		 WHERE memory_id = ? AND user_id = ? AND deleted_at IS NULL`, memoryID, userID)
	m, err := scanLongTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMemories fetches several live memories by ID, scoped to the user.
// Missing IDs are silently omitted.
func (s *Store) GetMemories(ctx context.Context, userID string, memoryIDs []string) ([]model.Memory, error) {
	if len(memoryIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(memoryIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(memoryIDs)+1)
	args = append(args, userID)
	for _, id := range memoryIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM long_term_memories
		 WHERE user_id = ? AND deleted_at IS NULL AND memory_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanLongTerm(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// UpdateMemoryParams names the mutable fields. Nil fields are unchanged.
type UpdateMemoryParams struct {
	Content    *string
	Summary    *string
	Importance *float64
	Entities   []string
	Metadata   *string // raw JSON
}

// UpdateMemory applies a partial update to a live memory.
func (s *Store) UpdateMemory(ctx context.Context, userID, memoryID string, p UpdateMemoryParams) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC().Format(timeFormat)}

	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *p.Summary)
	}
	if p.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, *p.Importance)
	}
	if p.Entities != nil {
		b, _ := json.Marshal(p.Entities)
		sets = append(sets, "entities = ?")
		args = append(args, string(b))
	}
	if p.Metadata != nil {
		sets = append(sets, "metadata = ?")
		args = append(args, *p.Metadata)
	}

	args = append(args, memoryID, userID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memories SET `+strings.Join(sets, ", ")+`
		 WHERE memory_id = ? AND user_id = ? AND deleted_at IS NULL`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

// SoftDeleteMemory marks a memory deleted without removing the row.
func (s *Store) SoftDeleteMemory(ctx context.Context, userID, memoryID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memories SET deleted_at = ?
		 WHERE memory_id = ? AND user_id = ? AND deleted_at IS NULL`,
		time.Now().UTC().Format(timeFormat), memoryID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

// SetSupersedes records that newID supersedes oldID and soft-deletes the
// old memory. Both must be live and owned by the user.
func (s *Store) SetSupersedes(ctx context.Context, userID, newID, oldID string) error {
	if _, err := s.GetMemory(ctx, userID, newID); err != nil {
		return fmt.Errorf("new memory: %w", err)
	}
	if _, err := s.GetMemory(ctx, userID, oldID); err != nil {
		return fmt.Errorf("old memory: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	if _, err := tx.ExecContext(ctx,
		`UPDATE long_term_memories SET supersedes = ?, updated_at = ? WHERE memory_id = ?`,
		oldID, now, newID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE long_term_memories SET deleted_at = ? WHERE memory_id = ?`,
		now, oldID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAllForUser hard-deletes everything the user owns: access log,
// relationships, working memory, sessions, and long-term rows. Returns
// the number of long-term memories removed.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_access_log WHERE user_id = ?`, userID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_relationships WHERE from_id IN
		   (SELECT memory_id FROM long_term_memories WHERE user_id = ?)
		 OR to_id IN
		   (SELECT memory_id FROM long_term_memories WHERE user_id = ?)`,
		userID, userID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM working_memory_items WHERE user_id = ?`, userID); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM long_term_memories WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_contexts WHERE user_id = ?`, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(removed), nil
}

// IncrementAccess bumps access counters and last_accessed for the given
// memories.
func (s *Store) IncrementAccess(ctx context.Context, memoryIDs []string) error {
	now := time.Now().UTC().Format(timeFormat)
	for _, id := range memoryIDs {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE long_term_memories SET access_count = access_count + 1, last_accessed = ?
			 WHERE memory_id = ?`, now, id); err != nil {
			return err
		}
	}
	return nil
}

// CountForUser reports how many live memories the user has.
func (s *Store) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM long_term_memories WHERE user_id = ? AND deleted_at IS NULL`,
		userID).Scan(&n)
	return n, err
}

// ApplyDecay multiplies importance and decay_factor by rate for live
// memories not accessed since the cutoff. Memories already at or below
// importance 0.1 are left alone. Returns the number of rows affected.
func (s *Store) ApplyDecay(ctx context.Context, userID string, cutoff time.Time, rate float64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memories
		 SET importance = importance * ?, decay_factor = decay_factor * ?, updated_at = ?
		 WHERE user_id = ? AND deleted_at IS NULL
		   AND (last_accessed < ? OR last_accessed IS NULL)
		   AND importance > 0.1`,
		rate, rate, time.Now().UTC().Format(timeFormat),
		userID, cutoff.Format(timeFormat))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Recent returns the user's most recently created live memories.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM long_term_memories
		 WHERE user_id = ? AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanLongTerm(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// Stale returns live memories not accessed since olderThan (or never) with
// at most maxAccess accesses, least important first.
func (s *Store) Stale(ctx context.Context, userID string, olderThan time.Time, maxAccess, limit int) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM long_term_memories
		 WHERE user_id = ? AND deleted_at IS NULL
		   AND (last_accessed < ? OR last_accessed IS NULL)
		   AND access_count < ?
		 ORDER BY importance ASC LIMIT ?`,
		userID, olderThan.Format(timeFormat), maxAccess, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanLongTerm(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func scanLongTerm(row scanner) (model.Memory, error) {
	var m model.Memory
	var summary, entities, eventTime, metadata, supersedes, sourceSession sql.NullString
	var lastAccessed, deletedAt sql.NullString
	var isTemporal int
	var createdAt, updatedAt string

	err := row.Scan(&m.MemoryID, &m.UserID, &m.Category, &m.Subtype, &m.Content,
		&summary, &entities, &m.Importance, &m.AccessCount, &m.DecayFactor,
		&isTemporal, &eventTime, &metadata, &supersedes, &sourceSession,
		&m.SourceType, &createdAt, &updatedAt, &lastAccessed, &deletedAt)
	if err != nil {
		return m, err
	}

	m.Summary = summary.String
	m.Supersedes = supersedes.String
	m.SourceSession = sourceSession.String
	m.IsTemporal = isTemporal != 0
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	m.LastAccessed = parseTimePtr(lastAccessed)
	m.DeletedAt = parseTimePtr(deletedAt)
	m.EventTime = parseTimePtr(eventTime)
	if entities.Valid {
		json.Unmarshal([]byte(entities.String), &m.Entities)
	}
	m.Metadata = metadata.String
	return m, nil
}
