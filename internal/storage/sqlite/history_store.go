package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deploykit/stagegate/internal/domain"
)

// Append-only tables. Rows inserted here are never updated or deleted; they
// remain after the stage they reference is gone.

// AppendConfigHistory inserts an audit entry, assigning it an id and
// timestamp.
func (s *Store) AppendConfigHistory(ctx context.Context, entry domain.AuditEntry) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	query := `INSERT INTO config_history (id, entity_id, change_type, config_data, operator, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.EntityID, entry.ChangeType, entry.ConfigData,
		entry.Operator, entry.CreatedAt)
	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to append config history: %v", err))
	}

	return nil
}

// AppendChangeFeed inserts a change feed entry, assigning it an id and
// timestamp.
func (s *Store) AppendChangeFeed(ctx context.Context, entry domain.ChangeFeedEntry) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	query := `INSERT INTO change_feed (id, entity_type, entity_id, change_type, operator, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.EntityType, entry.EntityID, entry.ChangeType,
		entry.Operator, entry.CreatedAt)
	if err != nil {
		return domain.ErrStoreFailure(fmt.Sprintf("failed to append change feed: %v", err))
	}

	return nil
}

// AppendTag inserts a tag entry, assigning it an id and timestamp, and
// returns the stored entry.
func (s *Store) AppendTag(ctx context.Context, entry domain.TagEntry) (*domain.TagEntry, error) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	query := `INSERT INTO tags (id, target_id, target_type, value, comments, operator, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.TargetID, entry.TargetType, entry.Value,
		nullable(entry.Comments), entry.Operator, entry.CreatedAt)
	if err != nil {
		return nil, domain.ErrStoreFailure(fmt.Sprintf("failed to append tag: %v", err))
	}

	return &entry, nil
}

// CountConfigHistory returns the number of audit entries recorded for an
// entity. Read side for operational checks and tests; rendering history is
// out of scope.
func (s *Store) CountConfigHistory(ctx context.Context, entityID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM config_history WHERE entity_id = ?`, entityID).Scan(&n)
	if err != nil {
		return 0, domain.ErrStoreFailure(fmt.Sprintf("failed to count config history: %v", err))
	}
	return n, nil
}

// CountChangeFeed returns the number of change feed entries for an entity.
func (s *Store) CountChangeFeed(ctx context.Context, entityType, entityID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM change_feed WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID).Scan(&n)
	if err != nil {
		return 0, domain.ErrStoreFailure(fmt.Sprintf("failed to count change feed: %v", err))
	}
	return n, nil
}

// CountTags returns the number of tag entries recorded for a target.
func (s *Store) CountTags(ctx context.Context, targetID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE target_id = ?`, targetID).Scan(&n)
	if err != nil {
		return 0, domain.ErrStoreFailure(fmt.Sprintf("failed to count tags: %v", err))
	}
	return n, nil
}
