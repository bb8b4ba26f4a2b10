package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu            sync.RWMutex
	turns         map[string][]Turn
	conversations map[string]Conversation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		turns:         make(map[string][]Turn),
		conversations: make(map[string]Conversation),
	}
}

func (s *InMemoryStore) AppendTurn(_ context.Context, turn Turn) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns[turn.ConversationID] = append(s.turns[turn.ConversationID], turn)
	if c, ok := s.conversations[turn.ConversationID]; ok {
		c.LastActivity = turn.CreatedAt
		s.conversations[turn.ConversationID] = c
	}
	return turn, nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, conversationID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[conversationID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Turn, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) CreateConversation(_ context.Context, principalID, title string) (Conversation, error) {
	now := time.Now().UTC()
	c := Conversation{
		ID:           uuid.NewString(),
		PrincipalID:  principalID,
		Title:        title,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = c
	return c, nil
}

func (s *InMemoryStore) ListConversations(_ context.Context, principalID string) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Conversation
	for _, c := range s.conversations {
		if c.PrincipalID == principalID {
			out = append(out, c)
		}
	}
	// Most recently active first, matching the postgres query.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LastActivity.After(out[i].LastActivity) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) RenameConversation(_ context.Context, conversationID, title string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	c.Title = title
	s.conversations[conversationID] = c
	return c, nil
}

func (s *InMemoryStore) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(s.conversations, conversationID)
	delete(s.turns, conversationID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
