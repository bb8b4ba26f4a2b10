package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// PostgresStore keeps vector memory in PostgreSQL via the pgvector extension.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string, dim int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initVectorSchema(ctx, pool, dim); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initVectorSchema(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_records (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			principal_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, dim),
		`CREATE INDEX IF NOT EXISTS idx_memory_records_scope ON memory_records (principal_id, conversation_id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init vector schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, record Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_records (id, conversation_id, principal_id, content, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			conversation_id = EXCLUDED.conversation_id,
			principal_id = EXCLUDED.principal_id,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		record.ID,
		record.Metadata.ConversationID,
		record.Metadata.PrincipalID,
		record.Metadata.Text,
		pgvector.NewVector(record.Vector),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert memory record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error) {
	if k <= 0 {
		k = 3
	}

	// <=> is cosine distance, so similarity = 1 - distance; order by distance
	// ascending with created_at as the recency tie-break.
	vec := pgvector.NewVector(vector)
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, principal_id, content, 1 - (embedding <=> $1) AS score
		 FROM memory_records
		 WHERE principal_id = $2 AND conversation_id = $3
		 ORDER BY embedding <=> $1, created_at DESC
		 LIMIT $4`,
		vec, filter.PrincipalID, filter.ConversationID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query memory records: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Metadata.ConversationID, &m.Metadata.PrincipalID, &m.Metadata.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory rows: %w", err)
	}
	return matches, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
