package turn

import "time"

// Request is the unit of work submitted to the orchestrator: one inbound
// user message bound to an already-authenticated principal.
type Request struct {
	ConversationID string
	PrincipalID    string
	Text           string
}

// FailureReason tags the fatal outcome of a turn.
type FailureReason string

const (
	ReasonPersistence FailureReason = "persistence_error"
	ReasonEmbedding   FailureReason = "embedding_error"
	ReasonGeneration  FailureReason = "generation_error"
)

// Result is the single terminal outcome of a Request. Exactly one Result is
// produced per Request; on failure Text carries the user-safe fallback reply
// and Error is set so the client can render it distinctly.
type Result struct {
	ConversationID string
	Text           string
	CreatedAt      time.Time
	Error          bool
	Reason         FailureReason
}
