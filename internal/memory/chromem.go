package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is an embedded, pure-Go vector store. It is the default when
// no DATABASE_URL is configured: everything lives in process memory, which is
// plenty for local runs and tests.
type ChromemStore struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	insertSeq  map[string]int64
	seq        int64
}

func NewChromemStore() (*ChromemStore, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("memories", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create chromem collection: %w", err)
	}
	return &ChromemStore{
		db:         db,
		collection: col,
		insertSeq:  make(map[string]int64),
	}, nil
}

// Upsert stores the record, replacing any previous document at the same id.
// chromem has no native upsert, so this deletes first; a retried write is a
// no-op apart from refreshing the stored values.
func (s *ChromemStore) Upsert(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.insertSeq[record.ID]; exists {
		if err := s.collection.Delete(ctx, nil, nil, record.ID); err != nil {
			return fmt.Errorf("replace memory %s: %w", record.ID, err)
		}
	} else {
		s.seq++
		s.insertSeq[record.ID] = s.seq
	}

	doc := chromem.Document{
		ID:        record.ID,
		Content:   record.Metadata.Text,
		Embedding: record.Vector,
		Metadata: map[string]string{
			"conversation_id": record.Metadata.ConversationID,
			"principal_id":    record.Metadata.PrincipalID,
			"created_at":      time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add memory document: %w", err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 {
		k = 3
	}
	// chromem rejects nResults larger than the collection size.
	if count := s.collection.Count(); count < k {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	where := map[string]string{
		"principal_id":    filter.PrincipalID,
		"conversation_id": filter.ConversationID,
	}
	results, err := s.collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID: r.ID,
			Metadata: Metadata{
				ConversationID: r.Metadata["conversation_id"],
				PrincipalID:    r.Metadata["principal_id"],
				Text:           r.Content,
			},
			Score: float64(r.Similarity),
		})
	}

	// chromem orders by similarity but leaves ties unspecified; enforce the
	// recency tie-break so results are deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return s.insertSeq[matches[i].ID] > s.insertSeq[matches[j].ID]
	})
	return matches, nil
}

func (s *ChromemStore) Close() error { return nil }
