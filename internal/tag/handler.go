// Package tag records discrete named actions against target entities.
package tag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deploykit/stagegate/internal/domain"
)

// Appender is the slice of the store tags are written through.
type Appender interface {
	AppendTag(ctx context.Context, entry domain.TagEntry) (*domain.TagEntry, error)
}

// Handler validates and appends tag entries.
type Handler struct {
	store  Appender
	logger *slog.Logger
}

var _ domain.TagLog = (*Handler)(nil)

// NewHandler creates a tag handler writing through the given store.
func NewHandler(store Appender, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// CreateTag validates that the entry's value is a recognized action for its
// target type, appends it attributed to operator, and returns the stored
// entry with its generated id and timestamp.
func (h *Handler) CreateTag(ctx context.Context, entry domain.TagEntry, operator string) (*domain.TagEntry, error) {
	if entry.TargetID == "" {
		return nil, domain.ErrInvalidArgument("tag target_id is required").WithParam("target_id")
	}
	if !entry.Value.RecognizedFor(entry.TargetType) {
		return nil, domain.ErrInvalidArgument(fmt.Sprintf(
			"value %s is not recognized for target type %s", entry.Value, entry.TargetType)).
			WithParam("value")
	}

	entry.Operator = operator

	created, err := h.store.AppendTag(ctx, entry)
	if err != nil {
		h.logger.Error("tag append failed",
			slog.String("target_id", entry.TargetID),
			slog.String("value", string(entry.Value)),
			slog.String("operator", operator),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrAuditEmission(fmt.Sprintf("tag append failed: %v", err))
	}

	h.logger.Info("tag created",
		slog.String("tag_id", created.ID),
		slog.String("target_id", created.TargetID),
		slog.String("value", string(created.Value)),
		slog.String("operator", operator),
	)

	return created, nil
}
