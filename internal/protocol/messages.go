package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage MessageType = "user_message"
	TypeAIResponse  MessageType = "ai_response"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is the only inbound payload: one user turn addressed to a
// conversation the principal owns.
type UserMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
}

// AIResponse is the single reply emitted for each UserMessage. Error marks a
// fallback reply produced after a fatal pipeline failure; Reason carries the
// failure class and is empty on success.
type AIResponse struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
	Error          bool        `json:"error,omitempty"`
	Reason         string      `json:"reason,omitempty"`
}

// ErrorEvent reports a protocol-level problem (malformed frame, unknown
// type). It is not a turn reply and carries no conversation binding.
type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

// ParseClientMessage decodes and validates one inbound frame.
func ParseClientMessage(raw []byte) (UserMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return UserMessage{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Type != TypeUserMessage {
		return UserMessage{}, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}

	var msg UserMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return UserMessage{}, err
	}
	if strings.TrimSpace(msg.ConversationID) == "" {
		return UserMessage{}, errors.New("user_message missing conversation_id")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return UserMessage{}, errors.New("user_message missing content")
	}
	return msg, nil
}
