package memory

import (
	"context"
	"strings"
)

// NewStore creates a pgvector-backed store when a database is configured,
// otherwise an embedded chromem store.
func NewStore(ctx context.Context, databaseURL string, dim int) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewChromemStore()
	}
	return NewPostgresStore(ctx, databaseURL, dim)
}
