// Package lifecycle orchestrates stage mutations. Every operation follows
// the same sequence: resolve the current record, authorize the caller,
// validate the input, persist the mutation, then emit the audit records.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/deploykit/stagegate/internal/domain"
)

// ActionType is the closed set of discrete actions performAction dispatches
// on.
type ActionType string

const (
	ActionEnable  ActionType = "ENABLE"
	ActionDisable ActionType = "DISABLE"
)

// ParseActionType converts a raw token to an ActionType, rejecting anything
// outside the closed set.
func ParseActionType(raw string) (ActionType, error) {
	switch ActionType(strings.ToUpper(raw)) {
	case ActionEnable:
		return ActionEnable, nil
	case ActionDisable:
		return ActionDisable, nil
	}
	return "", domain.ErrInvalidArgument(fmt.Sprintf("no action found for %q", raw)).
		WithParam("actionType")
}

// Manager is the single long-lived lifecycle manager. Collaborators are
// injected once at process start and shared across calls; the manager itself
// holds no per-call state.
type Manager struct {
	store  domain.StageStore
	authz  domain.Authorizer
	audit  domain.AuditLog
	tags   domain.TagLog
	logger *slog.Logger
}

// NewManager wires the manager to its collaborators.
func NewManager(store domain.StageStore, authz domain.Authorizer, audit domain.AuditLog, tags domain.TagLog, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		authz:  authz,
		audit:  audit,
		tags:   tags,
		logger: logger,
	}
}

// Get returns the stage identified by (env, stage). Reads require no
// authorization.
func (m *Manager) Get(ctx context.Context, env, stage string) (*domain.Stage, error) {
	return m.store.GetByStageKey(ctx, env, stage)
}

// Update applies the desired state to an existing stage and records the
// change. Identity fields are never taken from the payload: the operation
// cannot rename a stage. Once a stage's type has left DEFAULT it is frozen.
//
// On success the updated stage is returned. If the store write succeeded but
// an audit append failed, the updated stage is returned together with an
// audit emission error: the mutation is durable, its record is not.
func (m *Manager) Update(ctx context.Context, env, stage string, update domain.StageUpdate, caller domain.Caller) (*domain.Stage, error) {
	orig, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return nil, err
	}

	if err := m.authz.Authorize(ctx, caller,
		domain.Resource{Name: orig.EnvName, Type: domain.ResourceTypeEnv},
		domain.RoleOperator); err != nil {
		return nil, err
	}

	if err := update.Validate(); err != nil {
		return nil, err
	}

	desiredType := update.StageType
	if desiredType == "" {
		desiredType = orig.StageType
	}
	if orig.StageType != domain.StageTypeDefault && desiredType != orig.StageType {
		return nil, domain.ErrInvalidArgument("modification of stage type is not allowed").
			WithParam("stage_type")
	}

	desired := *orig
	desired.StageType = desiredType
	desired.Description = update.Description
	desired.BuildName = update.BuildName
	desired.Branch = update.Branch
	desired.MaxParallel = update.MaxParallel
	desired.Priority = update.Priority

	updated, err := m.store.Save(ctx, &desired)
	if err != nil {
		return nil, err
	}

	configData, err := json.Marshal(updated)
	if err != nil {
		configData = []byte(fmt.Sprintf("%+v", updated))
	}
	if err := m.audit.RecordConfigChange(ctx, orig.ID, domain.ChangeTypeEnvGeneral,
		string(configData), caller.Name); err != nil {
		return updated, err
	}
	if err := m.audit.RecordChangeFeed(ctx, domain.EntityTypeEnv, orig.ID,
		domain.ChangeTypeEnvGeneral, caller.Name); err != nil {
		return updated, err
	}

	m.logger.Info("stage updated",
		slog.String("env", env),
		slog.String("stage", stage),
		slog.String("operator", caller.Name),
	)

	return updated, nil
}

// Delete removes the stage record. Historical audit and tag entries survive
// as the immutable record of the now-gone entity. No audit entry is emitted
// for the delete itself.
func (m *Manager) Delete(ctx context.Context, env, stage string, caller domain.Caller) error {
	orig, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return err
	}

	if err := m.authz.Authorize(ctx, caller,
		domain.Resource{Name: orig.EnvName, Type: domain.ResourceTypeEnv},
		domain.RoleOperator); err != nil {
		return err
	}

	if err := m.store.Delete(ctx, env, stage); err != nil {
		return err
	}

	m.logger.Info("stage deleted",
		slog.String("env", env),
		slog.String("stage", stage),
		slog.String("operator", caller.Name),
	)

	return nil
}

// SetExternalID sets the external correlation id on a stage. The id must be
// syntactically a UUID. The record is re-read after the write so the caller
// sees the store's accepted value.
func (m *Manager) SetExternalID(ctx context.Context, env, stage, externalID string, caller domain.Caller) (*domain.Stage, error) {
	if _, err := uuid.Parse(externalID); err != nil {
		m.logger.Info("invalid external id supplied",
			slog.String("env", env),
			slog.String("stage", stage),
			slog.String("external_id", externalID),
		)
		return nil, domain.ErrInvalidArgument(fmt.Sprintf(
			"invalid externalId %q, expected UUID format", externalID)).WithParam("externalId")
	}

	orig, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return nil, err
	}

	if err := m.authz.Authorize(ctx, caller,
		domain.Resource{Name: orig.EnvName, Type: domain.ResourceTypeEnv},
		domain.RoleOperator); err != nil {
		return nil, err
	}

	if err := m.store.SetExternalID(ctx, orig, externalID); err != nil {
		return nil, err
	}

	updated, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return nil, err
	}

	m.logger.Info("stage external id set",
		slog.String("env", env),
		slog.String("stage", stage),
		slog.String("external_id", updated.ExternalID),
		slog.String("operator", caller.Name),
	)

	return updated, nil
}

// SetComplianceFlag sets the SOX compliance flag from a raw boolean token.
// Only the literals "true" and "false" are accepted, case-insensitively;
// anything else fails validation before any lookup or write.
func (m *Manager) SetComplianceFlag(ctx context.Context, env, stage, rawValue string, caller domain.Caller) (*domain.Stage, error) {
	token := strings.ToLower(rawValue)
	if token != "true" && token != "false" {
		m.logger.Info("invalid boolean token supplied for compliance flag",
			slog.String("env", env),
			slog.String("stage", stage),
			slog.String("value", rawValue),
		)
		return nil, domain.ErrInvalidArgument(fmt.Sprintf(
			"invalid boolean value %q, expected 'true' or 'false'", rawValue)).
			WithParam("stage_is_sox")
	}

	orig, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return nil, err
	}

	if err := m.authz.Authorize(ctx, caller,
		domain.Resource{Name: orig.EnvName, Type: domain.ResourceTypeEnv},
		domain.RoleOperator); err != nil {
		return nil, err
	}

	if err := m.store.SetComplianceFlag(ctx, orig, token == "true"); err != nil {
		return nil, err
	}

	updated, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return nil, err
	}

	m.logger.Info("stage compliance flag set",
		slog.String("env", env),
		slog.String("stage", stage),
		slog.Bool("is_sox", updated.IsSOX),
		slog.String("operator", caller.Name),
	)

	return updated, nil
}

// PerformAction dispatches a discrete action on a stage. Each accepted
// action toggles the lifecycle state and appends exactly one tag entry; the
// toggle is idempotent, but every call is independently tagged.
func (m *Manager) PerformAction(ctx context.Context, env, stage string, action ActionType, description string, caller domain.Caller) (*domain.TagEntry, error) {
	orig, err := m.store.GetByStageKey(ctx, env, stage)
	if err != nil {
		return nil, err
	}

	if err := m.authz.Authorize(ctx, caller,
		domain.Resource{Name: orig.EnvName, Type: domain.ResourceTypeEnv},
		domain.RoleOperator); err != nil {
		return nil, err
	}

	var value domain.TagValue
	switch action {
	case ActionEnable:
		if err := m.enable(ctx, orig); err != nil {
			return nil, err
		}
		value = domain.TagValueEnableEnv
	case ActionDisable:
		if err := m.disable(ctx, orig); err != nil {
			return nil, err
		}
		value = domain.TagValueDisableEnv
	default:
		return nil, domain.ErrInvalidArgument(fmt.Sprintf("no action found for %q", action)).
			WithParam("actionType")
	}

	created, err := m.tags.CreateTag(ctx, domain.TagEntry{
		TargetID:   orig.ID,
		TargetType: domain.TagTargetEnvironment,
		Value:      value,
		Comments:   description,
	}, caller.Name)
	if err != nil {
		return nil, err
	}

	m.logger.Info("stage action performed",
		slog.String("env", env),
		slog.String("stage", stage),
		slog.String("action", string(action)),
		slog.String("operator", caller.Name),
	)

	return created, nil
}

func (m *Manager) enable(ctx context.Context, st *domain.Stage) error {
	return m.store.SetState(ctx, st, domain.StageStateEnabled)
}

func (m *Manager) disable(ctx context.Context, st *domain.Stage) error {
	return m.store.SetState(ctx, st, domain.StageStateDisabled)
}
