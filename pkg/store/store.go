// Package store persists named diagrams. MongoStore backs the API server;
// MemoryStore backs tests and single-process usage.
package store

import (
	"context"
	"time"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
)

// Record is a stored diagram with bookkeeping metadata.
type Record struct {
	Name      string          `bson:"name" json:"name"`
	Diagram   diagram.Diagram `bson:"diagram" json:"diagram"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

// Store is the persistence interface for named diagrams.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a diagram by name. Returns ErrCodeDiagramNotFound if
	// no diagram with that name exists.
	Get(ctx context.Context, name string) (Record, error)

	// Put stores a diagram under a name, replacing any existing record.
	Put(ctx context.Context, name string, d diagram.Diagram) error

	// Delete removes a diagram. Deleting a missing name returns
	// ErrCodeDiagramNotFound.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored diagrams, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}

// validateName rejects names that cannot serve as store keys.
func validateName(name string) error {
	if err := errors.ValidateDiagramName(name); err != nil {
		return err
	}
	return nil
}
