package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mnemo-dev/mnemo/internal/model"
)

// ErrItemNotFound is returned when a working memory item does not exist.
var ErrItemNotFound = errors.New("working memory item not found")

// AddItemParams holds parameters for adding a working memory item.
type AddItemParams struct {
	SessionID      string
	ContentType    string
	Content        string
	TokenCount     int
	RelevanceScore float64
	Pinned         bool
}

// AddItem inserts an item into a session's working memory, evicting the
// lowest-relevance non-pinned items first when the token budget would be
// exceeded. Pinned items are never evicted, so the session may end up over
// budget when they dominate. Returns the new item and the evicted item IDs.
func (s *Store) AddItem(ctx context.Context, p AddItemParams) (*model.WorkingItem, []string, error) {
	sess, err := s.GetSession(ctx, p.SessionID)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var evicted []string
	needed := sess.TotalTokens + p.TokenCount - sess.MaxTokens
	if needed > 0 {
		rows, err := tx.QueryContext(ctx,
			`SELECT item_id, token_count FROM working_memory_items
			 WHERE session_id = ? AND pinned = 0
			 ORDER BY relevance_score ASC, sequence_num ASC`, p.SessionID)
		if err != nil {
			return nil, nil, err
		}
		freed := 0
		for rows.Next() {
			var id string
			var tc int
			if err := rows.Scan(&id, &tc); err != nil {
				rows.Close()
				return nil, nil, err
			}
			evicted = append(evicted, id)
			freed += tc
			if freed >= needed {
				break
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}

		for _, id := range evicted {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM working_memory_items WHERE item_id = ?`, id); err != nil {
				return nil, nil, fmt.Errorf("evict %s: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE session_contexts SET total_tokens = total_tokens - ?
			 WHERE session_id = ?`, freed, p.SessionID); err != nil {
			return nil, nil, err
		}
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_num), 0) + 1 FROM working_memory_items
		 WHERE session_id = ?`, p.SessionID).Scan(&seq); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	item := &model.WorkingItem{
		ItemID:         s.newID(),
		SessionID:      p.SessionID,
		UserID:         sess.UserID,
		ContentType:    p.ContentType,
		Content:        p.Content,
		TokenCount:     p.TokenCount,
		RelevanceScore: p.RelevanceScore,
		Pinned:         p.Pinned,
		SequenceNum:    seq,
		CreatedAt:      now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO working_memory_items
		 (item_id, session_id, user_id, content_type, content, token_count, relevance_score, pinned, sequence_num, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.SessionID, item.UserID, item.ContentType, item.Content,
		item.TokenCount, item.RelevanceScore, boolInt(item.Pinned), item.SequenceNum,
		now.Format(timeFormat))
	if err != nil {
		return nil, nil, fmt.Errorf("insert item: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE session_contexts SET total_tokens = total_tokens + ?, last_activity = ?
		 WHERE session_id = ?`,
		p.TokenCount, now.Format(timeFormat), p.SessionID); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return item, evicted, nil
}

// GetItems returns working memory items for a session within a token
// budget. Items are considered pinned first, then by descending relevance,
// then most recent first; items that would overflow the budget are skipped
// rather than truncated. maxTokens <= 0 means no budget. Truncated reports
// whether anything stored was left out.
func (s *Store) GetItems(ctx context.Context, sessionID string, maxTokens int) (items []model.WorkingItem, used int, truncated bool, err error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, 0, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, session_id, user_id, content_type, content, token_count,
		        relevance_score, pinned, sequence_num, created_at, last_accessed
		 FROM working_memory_items WHERE session_id = ?
		 ORDER BY pinned DESC, relevance_score DESC, sequence_num DESC`, sessionID)
	if err != nil {
		return nil, 0, false, err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanWorkingItem(rows)
		if err != nil {
			return nil, 0, false, err
		}
		if maxTokens > 0 && used+item.TokenCount > maxTokens {
			continue
		}
		used += item.TokenCount
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, false, err
	}

	truncated = used < sess.TotalTokens

	if len(items) > 0 {
		now := time.Now().UTC().Format(timeFormat)
		for i := range items {
			s.db.ExecContext(ctx,
				`UPDATE working_memory_items SET last_accessed = ? WHERE item_id = ?`,
				now, items[i].ItemID)
		}
	}
	s.touchSession(ctx, sessionID)

	return items, used, truncated, nil
}

// UpdateItem changes an item's pinned flag and/or relevance score. Nil
// fields are left unchanged.
func (s *Store) UpdateItem(ctx context.Context, itemID string, pinned *bool, relevance *float64) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM working_memory_items WHERE item_id = ?`, itemID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	if pinned != nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE working_memory_items SET pinned = ? WHERE item_id = ?`,
			boolInt(*pinned), itemID); err != nil {
			return err
		}
	}
	if relevance != nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE working_memory_items SET relevance_score = ? WHERE item_id = ?`,
			*relevance, itemID); err != nil {
			return err
		}
	}
	return nil
}

// ClearSession removes working memory items from a session. With
// keepPinned, pinned items survive and the token total is recomputed from
// them. Returns the number of removed items.
func (s *Store) ClearSession(ctx context.Context, sessionID string, keepPinned bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `DELETE FROM working_memory_items WHERE session_id = ?`
	if keepPinned {
		query += ` AND pinned = 0`
	}
	res, err := tx.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx,
		`UPDATE session_contexts SET total_tokens =
		   (SELECT COALESCE(SUM(token_count), 0) FROM working_memory_items WHERE session_id = ?)
		 WHERE session_id = ?`, sessionID, sessionID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(removed), nil
}

// UnpinnedInOrder returns a session's non-pinned items in insertion order.
func (s *Store) UnpinnedInOrder(ctx context.Context, sessionID string) ([]model.WorkingItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, session_id, user_id, content_type, content, token_count,
		        relevance_score, pinned, sequence_num, created_at, last_accessed
		 FROM working_memory_items WHERE session_id = ? AND pinned = 0
		 ORDER BY sequence_num ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.WorkingItem
	for rows.Next() {
		item, err := scanWorkingItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RemoveItems deletes the given items and subtracts their tokens from the
// session total.
func (s *Store) RemoveItems(ctx context.Context, sessionID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	freed := 0
	for _, id := range itemIDs {
		var tc int
		err := tx.QueryRowContext(ctx,
			`SELECT token_count FROM working_memory_items WHERE item_id = ? AND session_id = ?`,
			id, sessionID).Scan(&tc)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM working_memory_items WHERE item_id = ?`, id); err != nil {
			return err
		}
		freed += tc
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE session_contexts SET total_tokens = total_tokens - ? WHERE session_id = ?`,
		freed, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func scanWorkingItem(row scanner) (model.WorkingItem, error) {
	var item model.WorkingItem
	var pinned int
	var createdAt string
	var lastAccessed sql.NullString

	err := row.Scan(&item.ItemID, &item.SessionID, &item.UserID, &item.ContentType,
		&item.Content, &item.TokenCount, &item.RelevanceScore, &pinned,
		&item.SequenceNum, &createdAt, &lastAccessed)
	if err != nil {
		return item, err
	}
	item.Pinned = pinned != 0
	item.CreatedAt = parseTime(createdAt)
	item.LastAccessed = parseTimePtr(lastAccessed)
	return item, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
