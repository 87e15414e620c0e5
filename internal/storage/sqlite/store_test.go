package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/deploykit/stagegate/internal/domain"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()
	store, err := New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedStage(t *testing.T, store *Store, env, stage string) *domain.Stage {
	t.Helper()
	st := &domain.Stage{EnvName: env, StageName: stage}
	if err := store.Create(context.Background(), st); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return st
}

func errType(t *testing.T, err error) domain.ErrorType {
	t.Helper()
	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want *domain.Error", err)
	}
	return derr.Type
}

func TestStore_GetByStageKey(t *testing.T) {
	store := newTestStore(t, "storeget")
	seeded := seedStage(t, store, "app", "prod")

	got, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}
	if got.ID != seeded.ID {
		t.Errorf("ID = %v, want %v", got.ID, seeded.ID)
	}
	if got.StageType != domain.StageTypeDefault {
		t.Errorf("StageType = %v, want %v", got.StageType, domain.StageTypeDefault)
	}
	if got.State != domain.StageStateDisabled {
		t.Errorf("State = %v, want %v", got.State, domain.StageStateDisabled)
	}

	_, err = store.GetByStageKey(context.Background(), "app", "missing")
	if got := errType(t, err); got != domain.ErrorTypeNotFound {
		t.Errorf("error type = %v, want %v", got, domain.ErrorTypeNotFound)
	}
}

func TestStore_SaveBumpsVersion(t *testing.T) {
	store := newTestStore(t, "storesave")
	seedStage(t, store, "app", "prod")

	orig, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}

	orig.Description = "primary serving stage"
	updated, err := store.Save(context.Background(), orig)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if updated.Description != "primary serving stage" {
		t.Errorf("Description = %q, want %q", updated.Description, "primary serving stage")
	}
	if updated.Version != orig.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, orig.Version+1)
	}
}

func TestStore_SaveConflictOnStaleVersion(t *testing.T) {
	store := newTestStore(t, "storeconflict")
	seedStage(t, store, "app", "prod")

	first, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}
	second, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}

	first.Description = "writer one"
	if _, err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The second writer still holds the old version and must be rejected.
	second.Description = "writer two"
	_, err = store.Save(context.Background(), second)
	if got := errType(t, err); got != domain.ErrorTypeConflict {
		t.Errorf("error type = %v, want %v", got, domain.ErrorTypeConflict)
	}

	current, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}
	if current.Description != "writer one" {
		t.Errorf("Description = %q, want %q", current.Description, "writer one")
	}
}

func TestStore_SaveDeletedStageIsNotFound(t *testing.T) {
	store := newTestStore(t, "storesavegone")
	seedStage(t, store, "app", "prod")

	st, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}

	if err := store.Delete(context.Background(), "app", "prod"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = store.Save(context.Background(), st)
	if got := errType(t, err); got != domain.ErrorTypeNotFound {
		t.Errorf("error type = %v, want %v", got, domain.ErrorTypeNotFound)
	}
}

func TestStore_FieldSetters(t *testing.T) {
	store := newTestStore(t, "storesetters")
	st := seedStage(t, store, "app", "prod")

	if err := store.SetExternalID(context.Background(), st, "9b2c6f1e-59a0-4a4b-8c0f-2f8d8f6f2a10"); err != nil {
		t.Fatalf("SetExternalID() error = %v", err)
	}
	if err := store.SetComplianceFlag(context.Background(), st, true); err != nil {
		t.Fatalf("SetComplianceFlag() error = %v", err)
	}
	if err := store.SetState(context.Background(), st, domain.StageStateEnabled); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	got, err := store.GetByStageKey(context.Background(), "app", "prod")
	if err != nil {
		t.Fatalf("GetByStageKey() error = %v", err)
	}
	if got.ExternalID != "9b2c6f1e-59a0-4a4b-8c0f-2f8d8f6f2a10" {
		t.Errorf("ExternalID = %q", got.ExternalID)
	}
	if !got.IsSOX {
		t.Error("IsSOX = false, want true")
	}
	if got.State != domain.StageStateEnabled {
		t.Errorf("State = %v, want %v", got.State, domain.StageStateEnabled)
	}
}

func TestStore_DeleteMissingStage(t *testing.T) {
	store := newTestStore(t, "storedelete")

	err := store.Delete(context.Background(), "app", "missing")
	if got := errType(t, err); got != domain.ErrorTypeNotFound {
		t.Errorf("error type = %v, want %v", got, domain.ErrorTypeNotFound)
	}
}

func TestStore_AppendOnlyTables(t *testing.T) {
	store := newTestStore(t, "storeappend")
	st := seedStage(t, store, "app", "prod")

	err := store.AppendConfigHistory(context.Background(), domain.AuditEntry{
		EntityID:   st.ID,
		ChangeType: domain.ChangeTypeEnvGeneral,
		ConfigData: `{"description":"x"}`,
		Operator:   "alice",
	})
	if err != nil {
		t.Fatalf("AppendConfigHistory() error = %v", err)
	}

	err = store.AppendChangeFeed(context.Background(), domain.ChangeFeedEntry{
		EntityType: domain.EntityTypeEnv,
		EntityID:   st.ID,
		ChangeType: domain.ChangeTypeEnvGeneral,
		Operator:   "alice",
	})
	if err != nil {
		t.Fatalf("AppendChangeFeed() error = %v", err)
	}

	created, err := store.AppendTag(context.Background(), domain.TagEntry{
		TargetID:   st.ID,
		TargetType: domain.TagTargetEnvironment,
		Value:      domain.TagValueEnableEnv,
		Operator:   "alice",
	})
	if err != nil {
		t.Fatalf("AppendTag() error = %v", err)
	}
	if created.ID == "" {
		t.Error("AppendTag() returned entry without id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("AppendTag() returned entry without timestamp")
	}

	// History outlives the stage.
	if err := store.Delete(context.Background(), "app", "prod"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := store.CountConfigHistory(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("CountConfigHistory() error = %v", err)
	}
	if n != 1 {
		t.Errorf("config history count = %d, want 1", n)
	}

	n, err = store.CountChangeFeed(context.Background(), domain.EntityTypeEnv, st.ID)
	if err != nil {
		t.Fatalf("CountChangeFeed() error = %v", err)
	}
	if n != 1 {
		t.Errorf("change feed count = %d, want 1", n)
	}

	n, err = store.CountTags(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("CountTags() error = %v", err)
	}
	if n != 1 {
		t.Errorf("tag count = %d, want 1", n)
	}
}
