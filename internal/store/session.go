package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-dev/mnemo/internal/model"
)

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// InitSessionParams holds parameters for creating a session.
type InitSessionParams struct {
	SessionID string // empty generates a new one
	UserID    string
	OrgID     string
	MaxTokens int
}

// InitSession creates a session context, or returns the existing one when
// the session ID is already registered.
func (s *Store) InitSession(ctx context.Context, p InitSessionParams) (*model.Session, error) {
	if p.SessionID == "" {
		p.SessionID = uuid.NewString()
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 8000
	}

	if existing, err := s.GetSession(ctx, p.SessionID); err == nil {
		return existing, nil
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_contexts (session_id, user_id, org_id, total_tokens, max_tokens, created_at, last_activity)
		 VALUES (?, ?, ?, 0, ?, ?, ?)`,
		p.SessionID, p.UserID, nullable(p.OrgID), p.MaxTokens,
		now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &model.Session{
		SessionID:    p.SessionID,
		UserID:       p.UserID,
		OrgID:        p.OrgID,
		MaxTokens:    p.MaxTokens,
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

// GetSession fetches a session context by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, org_id, total_tokens, max_tokens, created_at, last_activity
		 FROM session_contexts WHERE session_id = ?`, sessionID)

	var sess model.Session
	var orgID sql.NullString
	var createdAt, lastActivity string
	err := row.Scan(&sess.SessionID, &sess.UserID, &orgID, &sess.TotalTokens,
		&sess.MaxTokens, &createdAt, &lastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.OrgID = orgID.String
	sess.CreatedAt = parseTime(createdAt)
	sess.LastActivity = parseTime(lastActivity)
	return &sess, nil
}

func (s *Store) touchSession(ctx context.Context, sessionID string) {
	s.db.ExecContext(ctx,
		`UPDATE session_contexts SET last_activity = ? WHERE session_id = ?`,
		time.Now().UTC().Format(timeFormat), sessionID)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
