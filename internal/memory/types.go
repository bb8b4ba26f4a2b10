package memory

import "context"

// Metadata scopes a record to its principal and conversation and carries the
// original text so query results are usable without a second lookup. Queries
// MUST filter on both ids to avoid cross-tenant leakage.
type Metadata struct {
	ConversationID string `json:"conversation_id"`
	PrincipalID    string `json:"principal_id"`
	Text           string `json:"text"`
}

// Record is one embedded snippet of conversation history. The ID is caller
// supplied and stable so retried upserts stay idempotent.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is a nearest-neighbor query result.
type Match struct {
	ID       string
	Metadata Metadata
	Score    float64
}

// Filter restricts a query to one principal's conversation.
type Filter struct {
	ConversationID string
	PrincipalID    string
}

// Store is the long-term vector memory. Query results are ordered by
// similarity score descending; ties break by insertion recency, most recent
// first, so results stay deterministic.
type Store interface {
	Upsert(ctx context.Context, record Record) error
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error)
	Close() error
}
