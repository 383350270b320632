// Package configstore persists per-instance decision service
// configuration, keyed by the platform's instanceId. The storage section
// of the service configuration selects one of three backends: in-memory
// (the default), Redis, or Postgres.
package configstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no instance exists for the given id.
var ErrNotFound = errors.New("configstore: instance not found")

// Instance is one deployed copy of the decision service on a campaign
// canvas, together with its saved evaluator configuration.
type Instance struct {
	ID               string            `json:"id"`
	ServiceType      string            `json:"service_type"`
	Configured       bool              `json:"configured"`
	RecordDefinition map[string]string `json:"record_definition"`
	Config           map[string]any    `json:"config"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Store is the instance configuration key-value store.
type Store interface {
	// Create saves a new instance. Creating an id that already exists
	// replaces it; the platform may resend create notifications.
	Create(ctx context.Context, inst *Instance) error
	// Get returns the instance or ErrNotFound.
	Get(ctx context.Context, id string) (*Instance, error)
	// Update replaces the stored instance or returns ErrNotFound.
	Update(ctx context.Context, inst *Instance) error
	// Delete removes the instance or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	// List returns all stored instances, in no particular order.
	List(ctx context.Context) ([]*Instance, error)
}
