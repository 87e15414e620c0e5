package domain

import "context"

// Role is the authorization level required for an operation on a resource.
type Role string

const (
	RoleReader   Role = "READER"
	RoleOperator Role = "OPERATOR"
	RoleAdmin    Role = "ADMIN"
)

// ResourceType identifies the kind of resource an authorization check is
// scoped to.
type ResourceType string

const (
	ResourceTypeEnv    ResourceType = "ENV"
	ResourceTypeSystem ResourceType = "SYSTEM"
)

// Resource describes the target of an authorization check. For stages the
// unit of authorization is the owning environment, not the stage itself.
type Resource struct {
	Name string
	Type ResourceType
}

// Caller is the already-resolved identity performing an operation.
// Authentication happens at the boundary; the core only attributes and
// authorizes.
type Caller struct {
	Name string
}

// Authorizer is the capability gate evaluated before any mutating side
// effect. Implementations return a Forbidden error when the caller lacks the
// required role on the resource, nil otherwise.
type Authorizer interface {
	Authorize(ctx context.Context, caller Caller, resource Resource, required Role) error
}

// StageStore is durable keyed storage for stage records. All operations are
// atomic per record; absent keys surface as NotFound.
type StageStore interface {
	// GetByStageKey returns the stage identified by (env, stage).
	GetByStageKey(ctx context.Context, env, stage string) (*Stage, error)

	// Save persists the full desired state. The write is accepted only if
	// the stored Version still matches the input's; otherwise it fails with
	// Conflict and leaves the record unchanged.
	Save(ctx context.Context, s *Stage) (*Stage, error)

	// SetExternalID sets the external correlation id on an existing stage.
	SetExternalID(ctx context.Context, s *Stage, externalID string) error

	// SetComplianceFlag sets the SOX compliance flag on an existing stage.
	SetComplianceFlag(ctx context.Context, s *Stage, isSOX bool) error

	// SetState sets the lifecycle state on an existing stage.
	SetState(ctx context.Context, s *Stage, state StageState) error

	// Delete removes the stage record. Historical audit and tag entries
	// referencing its id are not touched.
	Delete(ctx context.Context, env, stage string) error
}

// AuditLog is the append-only record of accepted config changes.
type AuditLog interface {
	// RecordConfigChange appends an AuditEntry for the entity.
	RecordConfigChange(ctx context.Context, entityID, changeType, configData, operator string) error

	// RecordChangeFeed appends a ChangeFeedEntry for the cross-entity
	// timeline.
	RecordChangeFeed(ctx context.Context, entityType, entityID, changeType, operator string) error
}

// TagLog is the append-only record of discrete named actions.
type TagLog interface {
	// CreateTag validates and appends the entry, returning it with a
	// generated id and timestamp.
	CreateTag(ctx context.Context, entry TagEntry, operator string) (*TagEntry, error)
}
