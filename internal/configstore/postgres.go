package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresStore keeps instances in a single table with the two map
// fields serialized as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle. The caller owns the
// handle's lifecycle; use EnsureSchema once at startup.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the instances table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decision_instances (
			id                TEXT PRIMARY KEY,
			service_type      TEXT NOT NULL DEFAULT '',
			configured        BOOLEAN NOT NULL DEFAULT FALSE,
			record_definition JSONB NOT NULL DEFAULT '{}',
			config            JSONB NOT NULL DEFAULT '{}',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("configstore: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, inst *Instance) error {
	recordDef, config, err := marshalMaps(inst)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	inst.CreatedAt = now
	inst.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decision_instances (id, service_type, configured, record_definition, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			service_type = EXCLUDED.service_type,
			configured = EXCLUDED.configured,
			record_definition = EXCLUDED.record_definition,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at`,
		inst.ID, inst.ServiceType, inst.Configured, recordDef, config, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("configstore: insert instance %s: %w", inst.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, service_type, configured, record_definition, config, created_at, updated_at
		FROM decision_instances WHERE id = $1`, id)
	return scanInstance(row)
}

func (s *PostgresStore) Update(ctx context.Context, inst *Instance) error {
	recordDef, config, err := marshalMaps(inst)
	if err != nil {
		return err
	}
	inst.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE decision_instances
		SET service_type = $2, configured = $3, record_definition = $4, config = $5, updated_at = $6
		WHERE id = $1`,
		inst.ID, inst.ServiceType, inst.Configured, recordDef, config, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("configstore: update instance %s: %w", inst.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("configstore: update instance %s: %w", inst.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM decision_instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("configstore: delete instance %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("configstore: delete instance %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_type, configured, record_definition, config, created_at, updated_at
		FROM decision_instances ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("configstore: list instances: %w", err)
	}
	defer rows.Close()

	var out []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("configstore: list instances: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*Instance, error) {
	var inst Instance
	var recordDef, config []byte
	err := row.Scan(&inst.ID, &inst.ServiceType, &inst.Configured, &recordDef, &config, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("configstore: scan instance: %w", err)
	}

	if len(recordDef) > 0 {
		if err := json.Unmarshal(recordDef, &inst.RecordDefinition); err != nil {
			return nil, fmt.Errorf("configstore: corrupt record_definition for %s: %w", inst.ID, err)
		}
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &inst.Config); err != nil {
			return nil, fmt.Errorf("configstore: corrupt config for %s: %w", inst.ID, err)
		}
	}
	return &inst, nil
}

func marshalMaps(inst *Instance) (recordDef, config []byte, err error) {
	recordDef, err = json.Marshal(inst.RecordDefinition)
	if err != nil {
		return nil, nil, fmt.Errorf("configstore: marshal record_definition for %s: %w", inst.ID, err)
	}
	config, err = json.Marshal(inst.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("configstore: marshal config for %s: %w", inst.ID, err)
	}
	return recordDef, config, nil
}
