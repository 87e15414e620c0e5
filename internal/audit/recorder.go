// Package audit records accepted config changes to the append-only history
// and change feed tables.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deploykit/stagegate/internal/domain"
)

// HistoryAppender is the slice of the store the recorder writes through.
type HistoryAppender interface {
	AppendConfigHistory(ctx context.Context, entry domain.AuditEntry) error
	AppendChangeFeed(ctx context.Context, entry domain.ChangeFeedEntry) error
}

// Recorder implements the audit log contract over an append-only store.
// Appends run after the primary mutation has been persisted; a failure here
// is reported to the caller but never rolls the mutation back.
type Recorder struct {
	store  HistoryAppender
	logger *slog.Logger
}

var _ domain.AuditLog = (*Recorder)(nil)

// NewRecorder creates an audit recorder writing through the given store.
func NewRecorder(store HistoryAppender, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// RecordConfigChange appends an audit entry for an accepted config change.
func (r *Recorder) RecordConfigChange(ctx context.Context, entityID, changeType, configData, operator string) error {
	err := r.store.AppendConfigHistory(ctx, domain.AuditEntry{
		EntityID:   entityID,
		ChangeType: changeType,
		ConfigData: configData,
		Operator:   operator,
	})
	if err != nil {
		// The mutation this records is already durable. Log the anomaly and
		// surface it; no automatic retry within the call.
		r.logger.Error("config history append failed",
			slog.String("entity_id", entityID),
			slog.String("change_type", changeType),
			slog.String("operator", operator),
			slog.String("error", err.Error()),
		)
		return domain.ErrAuditEmission(fmt.Sprintf("config history append failed: %v", err))
	}
	return nil
}

// RecordChangeFeed appends a change feed entry for the cross-entity timeline.
func (r *Recorder) RecordChangeFeed(ctx context.Context, entityType, entityID, changeType, operator string) error {
	err := r.store.AppendChangeFeed(ctx, domain.ChangeFeedEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ChangeType: changeType,
		Operator:   operator,
	})
	if err != nil {
		r.logger.Error("change feed append failed",
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID),
			slog.String("operator", operator),
			slog.String("error", err.Error()),
		)
		return domain.ErrAuditEmission(fmt.Sprintf("change feed append failed: %v", err))
	}
	return nil
}
