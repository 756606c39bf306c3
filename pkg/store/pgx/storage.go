// Package pgx implements graph-snapshot persistence on PostgreSQL.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"atlas/pkg/model"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// GraphDBStorage stores the graph serialization document as a single jsonb
// row. The graph is small relative to the chunk corpus, so one document plus
// an atomic upsert is simpler and safer than row-per-entity storage.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorage creates the storage over an existing connection pool and
// ensures its table exists.
func NewGraphDBStorage(ctx context.Context, conn pgxIConn) (*GraphDBStorage, error) {
	s := &GraphDBStorage{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("preparing graph snapshot table: %w", err)
	}
	return s, nil
}

func (s *GraphDBStorage) ensureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS graph_snapshots (
			id INT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// SaveGraph overwrites the stored snapshot.
func (s *GraphDBStorage) SaveGraph(ctx context.Context, data model.GraphData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("serializing graph snapshot: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO graph_snapshots (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, payload)
	if err != nil {
		return fmt.Errorf("storing graph snapshot: %w", err)
	}
	return nil
}

// LoadGraph reads the stored snapshot. The second return is false when no
// snapshot exists yet.
func (s *GraphDBStorage) LoadGraph(ctx context.Context) (model.GraphData, bool, error) {
	var payload []byte
	err := s.conn.QueryRow(ctx, `SELECT data FROM graph_snapshots WHERE id = 1`).Scan(&payload)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return model.GraphData{}, false, nil
	}
	if err != nil {
		return model.GraphData{}, false, fmt.Errorf("reading graph snapshot: %w", err)
	}

	var data model.GraphData
	if err := json.Unmarshal(payload, &data); err != nil {
		return model.GraphData{}, false, fmt.Errorf("decoding graph snapshot: %w", err)
	}
	return data, true, nil
}

// ClearGraph removes the stored snapshot.
func (s *GraphDBStorage) ClearGraph(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM graph_snapshots WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing graph snapshot: %w", err)
	}
	return nil
}
