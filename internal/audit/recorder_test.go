package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/deploykit/stagegate/internal/domain"
)

// memHistory collects appends in memory, optionally failing.
type memHistory struct {
	history []domain.AuditEntry
	feed    []domain.ChangeFeedEntry
	fail    bool
}

func (h *memHistory) AppendConfigHistory(_ context.Context, entry domain.AuditEntry) error {
	if h.fail {
		return domain.ErrStoreFailure("history table unavailable")
	}
	h.history = append(h.history, entry)
	return nil
}

func (h *memHistory) AppendChangeFeed(_ context.Context, entry domain.ChangeFeedEntry) error {
	if h.fail {
		return domain.ErrStoreFailure("feed table unavailable")
	}
	h.feed = append(h.feed, entry)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_RecordConfigChange(t *testing.T) {
	store := &memHistory{}
	r := NewRecorder(store, testLogger())

	err := r.RecordConfigChange(context.Background(),
		"env-1", domain.ChangeTypeEnvGeneral, `{"description":"x"}`, "alice")
	if err != nil {
		t.Fatalf("RecordConfigChange() error = %v", err)
	}

	if len(store.history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(store.history))
	}
	got := store.history[0]
	if got.EntityID != "env-1" || got.ChangeType != domain.ChangeTypeEnvGeneral || got.Operator != "alice" {
		t.Errorf("history entry = %+v", got)
	}
}

func TestRecorder_RecordChangeFeed(t *testing.T) {
	store := &memHistory{}
	r := NewRecorder(store, testLogger())

	err := r.RecordChangeFeed(context.Background(),
		domain.EntityTypeEnv, "env-1", domain.ChangeTypeEnvGeneral, "alice")
	if err != nil {
		t.Fatalf("RecordChangeFeed() error = %v", err)
	}

	if len(store.feed) != 1 {
		t.Fatalf("feed entries = %d, want 1", len(store.feed))
	}
}

func TestRecorder_AppendFailureIsAuditEmission(t *testing.T) {
	r := NewRecorder(&memHistory{fail: true}, testLogger())

	err := r.RecordConfigChange(context.Background(),
		"env-1", domain.ChangeTypeEnvGeneral, "{}", "alice")
	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("RecordConfigChange() error = %v, want *domain.Error", err)
	}
	if derr.Type != domain.ErrorTypeAuditEmission {
		t.Errorf("error type = %v, want %v", derr.Type, domain.ErrorTypeAuditEmission)
	}

	err = r.RecordChangeFeed(context.Background(),
		domain.EntityTypeEnv, "env-1", domain.ChangeTypeEnvGeneral, "alice")
	if !errors.As(err, &derr) {
		t.Fatalf("RecordChangeFeed() error = %v, want *domain.Error", err)
	}
	if derr.Type != domain.ErrorTypeAuditEmission {
		t.Errorf("error type = %v, want %v", derr.Type, domain.ErrorTypeAuditEmission)
	}
}
