package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// migrations[i] moves the database from user_version i to i+1.
var migrations = []string{
	baseSchema,
}

// ErrSchemaMismatch means the database was written by a newer clipfit.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func schemaVersion() int { return len(migrations) }

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case version > schemaVersion():
		return fmt.Errorf("%w: database has version %d, this build knows %d (delete %s to start fresh)",
			ErrSchemaMismatch, version, schemaVersion(), s.path)
	case version == schemaVersion():
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for next := version; next < schemaVersion(); next++ {
		if _, err := tx.ExecContext(ctx, migrations[next]); err != nil {
			return fmt.Errorf("migrate schema to version %d: %w", next+1, err)
		}
	}
	// PRAGMA arguments cannot be bound.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion())); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
