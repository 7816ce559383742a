// Package model defines the core memory data types.
package model

import "time"

// Session is a per-conversation working memory context.
type Session struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	OrgID        string    `json:"org_id,omitempty"`
	TotalTokens  int       `json:"total_tokens"`
	MaxTokens    int       `json:"max_tokens"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Working memory content types.
const (
	ContentMessage         = "message"
	ContentTaskState       = "task_state"
	ContentScratchpad      = "scratchpad"
	ContentRetrievedMemory = "retrieved_memory"
	ContentSystem          = "system"
)

// WorkingItem is a single entry in a session's working memory.
type WorkingItem struct {
	ItemID         string     `json:"item_id"`
	SessionID      string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	ContentType    string     `json:"content_type"`
	Content        string     `json:"content"`
	TokenCount     int        `json:"token_count"`
	RelevanceScore float64    `json:"relevance_score"`
	Pinned         bool       `json:"pinned"`
	SequenceNum    int        `json:"sequence_num"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessed   *time.Time `json:"last_accessed,omitempty"`
}

// Memory is a persisted long-term memory entry.
type Memory struct {
	MemoryID      string     `json:"memory_id"`
	UserID        string     `json:"user_id"`
	Category      string     `json:"memory_category"`
	Subtype       string     `json:"memory_subtype"`
	Content       string     `json:"content"`
	Summary       string     `json:"summary,omitempty"`
	Embedding     []float32  `json:"-"`
	Entities      []string   `json:"entities,omitempty"`
	Importance    float64    `json:"importance"`
	AccessCount   int        `json:"access_count"`
	DecayFactor   float64    `json:"decay_factor"`
	IsTemporal    bool       `json:"is_temporal,omitempty"`
	EventTime     *time.Time `json:"event_time,omitempty"`
	Metadata      string     `json:"metadata,omitempty"`
	Supersedes    string     `json:"supersedes,omitempty"`
	SourceSession string     `json:"source_session,omitempty"`
	SourceType    string     `json:"source_type,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Memory source types.
const (
	SourceConversation = "conversation"
	SourceCheckpoint   = "checkpoint"
)

// Relationship is a directed, typed link between two memories.
type Relationship struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Relation  string    `json:"relation"`
	Strength  float64   `json:"strength"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRelationships are the allowed relationship kinds.
// related_to and contradicts are symmetric and stored as two directed rows.
var ValidRelationships = map[string]bool{
	"related_to":  true,
	"part_of":     true,
	"depends_on":  true,
	"contradicts": true,
	"updates":     true,
}

// SymmetricRelationships get a reverse row when created bidirectionally.
var SymmetricRelationships = map[string]bool{
	"related_to":  true,
	"contradicts": true,
}

// Classification is the classifier collaborator's verdict on a piece of content.
type Classification struct {
	Category   string   `json:"memory_category"`
	Subtype    string   `json:"memory_subtype"`
	Importance float64  `json:"importance"`
	Entities   []string `json:"entities"`
	IsTemporal bool     `json:"is_temporal"`
	Summary    string   `json:"summary,omitempty"`
}
