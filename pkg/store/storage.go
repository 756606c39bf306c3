// Package store defines the persistence boundary for knowledge-graph
// snapshots.
package store

import (
	"context"

	"atlas/pkg/model"
)

// GraphStorage persists the full graph serialization document. Save
// overwrites the previous snapshot; Load reports false when no snapshot has
// ever been saved.
type GraphStorage interface {
	SaveGraph(ctx context.Context, data model.GraphData) error
	LoadGraph(ctx context.Context) (model.GraphData, bool, error)
	ClearGraph(ctx context.Context) error
}
