// Package sqlite provides the SQLite-backed stage store and the append-only
// audit, change feed, and tag tables.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/deploykit/stagegate/internal/domain"
)

// Store is a SQLite implementation of the stage store plus the append-only
// history, change feed, and tag tables.
type Store struct {
	db *sql.DB
}

// Ensure Store implements the stage store contract.
var _ domain.StageStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stages (
			id TEXT PRIMARY KEY,
			env_name TEXT NOT NULL,
			stage_name TEXT NOT NULL,
			stage_type TEXT NOT NULL DEFAULT 'DEFAULT',
			state TEXT NOT NULL DEFAULT 'DISABLED',
			external_id TEXT,
			is_sox INTEGER NOT NULL DEFAULT 0,
			description TEXT,
			build_name TEXT,
			branch TEXT,
			max_parallel INTEGER NOT NULL DEFAULT 0,
			priority TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (env_name, stage_name)
		)`,
		`CREATE TABLE IF NOT EXISTS config_history (
			id TEXT PRIMARY KEY,
			entity_id TEXT NOT NULL,
			change_type TEXT NOT NULL,
			config_data TEXT NOT NULL,
			operator TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS change_feed (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			change_type TEXT NOT NULL,
			operator TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			target_id TEXT NOT NULL,
			target_type TEXT NOT NULL,
			value TEXT NOT NULL,
			comments TEXT,
			operator TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stages_key ON stages(env_name, stage_name)`,
		`CREATE INDEX IF NOT EXISTS idx_config_history_entity ON config_history(entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_change_feed_entity ON change_feed(entity_type, entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_target ON tags(target_id, target_type)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

const stageColumns = `id, env_name, stage_name, stage_type, state, external_id, is_sox,
	description, build_name, branch, max_parallel, priority, version, created_at, updated_at`

func scanStage(row *sql.Row) (*domain.Stage, error) {
	var st domain.Stage
	var externalID, description, buildName, branch, priority sql.NullString

	err := row.Scan(
		&st.ID, &st.EnvName, &st.StageName, &st.StageType, &st.State,
		&externalID, &st.IsSOX,
		&description, &buildName, &branch, &st.MaxParallel, &priority,
		&st.Version, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}

	st.ExternalID = externalID.String
	st.Description = description.String
	st.BuildName = buildName.String
	st.Branch = branch.String
	st.Priority = priority.String

	return &st, nil
}

// Create inserts a new stage record. Used by the creation path and by tests
// to seed fixtures; lifecycle operations only mutate existing records.
func (s *Store) Create(ctx context.Context, st *domain.Stage) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.StageType == "" {
		st.StageType = domain.StageTypeDefault
	}
	if st.State == "" {
		st.State = domain.StageStateDisabled
	}
	st.Version = 1
	st.CreatedAt = time.Now()
	st.UpdatedAt = st.CreatedAt

	query := `INSERT INTO stages (` + stageColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.EnvName, st.StageName, st.StageType, st.State,
		nullable(st.ExternalID), st.IsSOX,
		nullable(st.Description), nullable(st.BuildName), nullable(st.Branch),
		st.MaxParallel, nullable(st.Priority),
		st.Version, st.CreatedAt, st.UpdatedAt)

	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to create stage: %v", err))
	}

	return nil
}

// GetByStageKey returns the stage identified by (env, stage).
func (s *Store) GetByStageKey(ctx context.Context, env, stage string) (*domain.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE env_name = ? AND stage_name = ?`

	st, err := scanStage(s.db.QueryRowContext(ctx, query, env, stage))
	if err == sql.ErrNoRows {
		return nil, domain.ErrStageNotFound(env, stage)
	}
	if err != nil {
		return nil, domain.ErrStoreFailure(fmt.Sprintf("failed to get stage: %v", err))
	}

	return st, nil
}

// Save persists the full desired state of an existing stage. The write is
// accepted only if the stored version still matches st.Version; a mismatch
// fails with Conflict and leaves the record unchanged.
func (s *Store) Save(ctx context.Context, st *domain.Stage) (*domain.Stage, error) {
	query := `UPDATE stages
	          SET stage_type = ?, description = ?, build_name = ?, branch = ?,
	              max_parallel = ?, priority = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND version = ?`

	result, err := s.db.ExecContext(ctx, query,
		st.StageType, nullable(st.Description), nullable(st.BuildName), nullable(st.Branch),
		st.MaxParallel, nullable(st.Priority), time.Now(),
		st.ID, st.Version)
	if err != nil {
		return nil, domain.ErrStoreFailure(fmt.Sprintf("failed to save stage: %v", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, domain.ErrStoreFailure(fmt.Sprintf("failed to get rows affected: %v", err))
	}

	if rows == 0 {
		// Distinguish a concurrent modification from a vanished record.
		if _, getErr := s.GetByStageKey(ctx, st.EnvName, st.StageName); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrConflict(fmt.Sprintf(
			"stage %s/%s changed since it was read", st.EnvName, st.StageName))
	}

	return s.GetByStageKey(ctx, st.EnvName, st.StageName)
}

// SetExternalID sets the external correlation id on an existing stage.
func (s *Store) SetExternalID(ctx context.Context, st *domain.Stage, externalID string) error {
	return s.setColumn(ctx, st, `external_id`, externalID)
}

// SetComplianceFlag sets the SOX compliance flag on an existing stage.
func (s *Store) SetComplianceFlag(ctx context.Context, st *domain.Stage, isSOX bool) error {
	return s.setColumn(ctx, st, `is_sox`, isSOX)
}

// SetState sets the lifecycle state on an existing stage.
func (s *Store) SetState(ctx context.Context, st *domain.Stage, state domain.StageState) error {
	return s.setColumn(ctx, st, `state`, string(state))
}

func (s *Store) setColumn(ctx context.Context, st *domain.Stage, column string, value any) error {
	query := fmt.Sprintf(
		`UPDATE stages SET %s = ?, version = version + 1, updated_at = ? WHERE id = ?`, column)

	result, err := s.db.ExecContext(ctx, query, value, time.Now(), st.ID)
	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to set %s: %v", column, err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to get rows affected: %v", err))
	}

	if rows == 0 {
		return domain.ErrStageNotFound(st.EnvName, st.StageName)
	}

	return nil
}

// Delete removes the stage record. Historical audit and tag entries
// referencing its id are left in place.
func (s *Store) Delete(ctx context.Context, env, stage string) error {
	query := `DELETE FROM stages WHERE env_name = ? AND stage_name = ?`

	result, err := s.db.ExecContext(ctx, query, env, stage)
	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to delete stage: %v", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to get rows affected: %v", err))
	}

	if rows == 0 {
		return domain.ErrStageNotFound(env, stage)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
