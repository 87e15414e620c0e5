package domain

import "time"

// Config history categories recorded with each audit entry.
const (
	// ChangeTypeEnvGeneral marks a general stage config change.
	ChangeTypeEnvGeneral = "ENV_GENERAL"

	// EntityTypeEnv is the change feed entity category for environment stages.
	EntityTypeEnv = "ENV"
)

// AuditEntry is an immutable record of one accepted config change. Entries
// are appended and never updated or deleted; they outlive the entity they
// reference.
type AuditEntry struct {
	ID         string    `json:"id"`
	EntityID   string    `json:"entity_id"`
	ChangeType string    `json:"change_type"`
	ConfigData string    `json:"config_data"`
	Operator   string    `json:"operator"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChangeFeedEntry is a coarser cross-entity pointer enabling a unified
// timeline across entity types. Append-only like AuditEntry.
type ChangeFeedEntry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ChangeType string    `json:"change_type"`
	Operator   string    `json:"operator"`
	CreatedAt  time.Time `json:"created_at"`
}

// TagTargetType identifies the kind of entity a tag is attached to.
type TagTargetType string

const (
	TagTargetEnvironment TagTargetType = "ENVIRONMENT"
	TagTargetBuild       TagTargetType = "BUILD"
)

// TagValue is a recognized discrete action recorded against a target entity.
type TagValue string

const (
	TagValueEnableEnv  TagValue = "ENABLE_ENV"
	TagValueDisableEnv TagValue = "DISABLE_ENV"
	TagValueBadBuild   TagValue = "BAD_BUILD"
	TagValueGoodBuild  TagValue = "GOOD_BUILD"
)

// RecognizedFor reports whether v is a recognized action for targets of the
// given type.
func (v TagValue) RecognizedFor(target TagTargetType) bool {
	switch target {
	case TagTargetEnvironment:
		return v == TagValueEnableEnv || v == TagValueDisableEnv
	case TagTargetBuild:
		return v == TagValueBadBuild || v == TagValueGoodBuild
	}
	return false
}

// TagEntry is an immutable record of a discrete named action performed on a
// target entity.
type TagEntry struct {
	ID         string        `json:"id"`
	TargetID   string        `json:"target_id"`
	TargetType TagTargetType `json:"target_type"`
	Value      TagValue      `json:"value"`
	Comments   string        `json:"comments,omitempty"`
	Operator   string        `json:"operator"`
	CreatedAt  time.Time     `json:"created_at"`
}
