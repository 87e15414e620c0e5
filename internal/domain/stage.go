package domain

import "time"

// StageType classifies a stage within its environment. A stage is created as
// DEFAULT and may be reclassified exactly once; after that the type is frozen.
type StageType string

const (
	StageTypeDefault    StageType = "DEFAULT"
	StageTypeDev        StageType = "DEV"
	StageTypeStaging    StageType = "STAGING"
	StageTypeCanary     StageType = "CANARY"
	StageTypeProduction StageType = "PRODUCTION"
)

// Valid reports whether t is a member of the closed StageType enumeration.
func (t StageType) Valid() bool {
	switch t {
	case StageTypeDefault, StageTypeDev, StageTypeStaging, StageTypeCanary, StageTypeProduction:
		return true
	}
	return false
}

// StageState is the lifecycle state of a stage. It is toggled only through
// the action pipeline, never through the general update operation.
type StageState string

const (
	StageStateEnabled  StageState = "ENABLED"
	StageStateDisabled StageState = "DISABLED"
)

// Stage is a named deployment target under an environment. The
// (EnvName, StageName) pair is its identity and never changes after creation;
// ID is the internal identifier audit records reference.
type Stage struct {
	ID        string     `json:"id"`
	EnvName   string     `json:"env_name"`
	StageName string     `json:"stage_name"`
	StageType StageType  `json:"stage_type"`
	State     StageState `json:"state"`

	// ExternalID correlates the stage with an external system. UUID format,
	// set only through the dedicated operation.
	ExternalID string `json:"external_id,omitempty"`

	// IsSOX marks the stage as subject to compliance controls.
	IsSOX bool `json:"is_sox"`

	Description string `json:"description,omitempty"`
	BuildName   string `json:"build_name,omitempty"`
	Branch      string `json:"branch,omitempty"`
	MaxParallel int    `json:"max_parallel,omitempty"`
	Priority    string `json:"priority,omitempty"`

	// Version increments on every accepted write and backs the store's
	// optimistic concurrency check.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageUpdate is the caller-supplied desired state for the general update
// operation. Identity fields are intentionally absent: update can never
// rename a stage.
type StageUpdate struct {
	StageType   StageType `json:"stage_type"`
	Description string    `json:"description"`
	BuildName   string    `json:"build_name"`
	Branch      string    `json:"branch"`
	MaxParallel int       `json:"max_parallel"`
	Priority    string    `json:"priority"`
}

// Validate checks the structural rules a desired state must satisfy before it
// can be persisted.
func (u *StageUpdate) Validate() error {
	if u.StageType != "" && !u.StageType.Valid() {
		return ErrInvalidArgument("unrecognized stage_type").WithParam("stage_type")
	}
	if u.MaxParallel < 0 {
		return ErrInvalidArgument("max_parallel must be non-negative").WithParam("max_parallel")
	}
	return nil
}
