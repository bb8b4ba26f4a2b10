package chat

import (
	"context"
	"errors"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Turn is one persisted message, user or assistant, within a conversation.
// Turns are append-only and ordered by creation time.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	PrincipalID    string    `json:"principal_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation groups turns under a title for one principal.
type Conversation struct {
	ID           string    `json:"conversation_id"`
	PrincipalID  string    `json:"principal_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Log is the narrow surface the turn pipeline needs.
type Log interface {
	// AppendTurn persists the turn, filling ID and CreatedAt when unset,
	// and returns the stored record.
	AppendTurn(ctx context.Context, turn Turn) (Turn, error)
	// RecentTurns returns the last limit turns of a conversation in
	// chronological (oldest-first) order.
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error)
}

// Store adds the conversation CRUD surface used by the HTTP handlers.
type Store interface {
	Log
	CreateConversation(ctx context.Context, principalID, title string) (Conversation, error)
	ListConversations(ctx context.Context, principalID string) ([]Conversation, error)
	RenameConversation(ctx context.Context, conversationID, title string) (Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	Close() error
}
