package tag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/deploykit/stagegate/internal/domain"
)

// memAppender collects appended tags in memory.
type memAppender struct {
	entries []domain.TagEntry
	fail    bool
}

func (a *memAppender) AppendTag(_ context.Context, entry domain.TagEntry) (*domain.TagEntry, error) {
	if a.fail {
		return nil, domain.ErrStoreFailure("tag table unavailable")
	}
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()
	a.entries = append(a.entries, entry)
	return &entry, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_CreateTag(t *testing.T) {
	store := &memAppender{}
	h := NewHandler(store, testLogger())

	created, err := h.CreateTag(context.Background(), domain.TagEntry{
		TargetID:   "env-1",
		TargetType: domain.TagTargetEnvironment,
		Value:      domain.TagValueEnableEnv,
		Comments:   "turning up",
	}, "alice")
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}

	if created.ID == "" {
		t.Error("CreateTag() returned entry without id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreateTag() returned entry without timestamp")
	}
	if created.Operator != "alice" {
		t.Errorf("Operator = %q, want %q", created.Operator, "alice")
	}
	if len(store.entries) != 1 {
		t.Fatalf("appended entries = %d, want 1", len(store.entries))
	}
}

func TestHandler_CreateTagRejectsUnrecognizedValue(t *testing.T) {
	tests := []struct {
		name  string
		entry domain.TagEntry
	}{
		{
			name: "build value on environment target",
			entry: domain.TagEntry{
				TargetID:   "env-1",
				TargetType: domain.TagTargetEnvironment,
				Value:      domain.TagValueBadBuild,
			},
		},
		{
			name: "unknown value",
			entry: domain.TagEntry{
				TargetID:   "env-1",
				TargetType: domain.TagTargetEnvironment,
				Value:      domain.TagValue("RESTART_ENV"),
			},
		},
		{
			name: "missing target id",
			entry: domain.TagEntry{
				TargetType: domain.TagTargetEnvironment,
				Value:      domain.TagValueEnableEnv,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memAppender{}
			h := NewHandler(store, testLogger())

			_, err := h.CreateTag(context.Background(), tt.entry, "alice")
			var derr *domain.Error
			if !errors.As(err, &derr) {
				t.Fatalf("CreateTag() error = %v, want *domain.Error", err)
			}
			if derr.Type != domain.ErrorTypeInvalidArgument {
				t.Errorf("error type = %v, want %v", derr.Type, domain.ErrorTypeInvalidArgument)
			}
			if len(store.entries) != 0 {
				t.Errorf("appended entries = %d, want 0", len(store.entries))
			}
		})
	}
}

func TestHandler_CreateTagAppendFailure(t *testing.T) {
	h := NewHandler(&memAppender{fail: true}, testLogger())

	_, err := h.CreateTag(context.Background(), domain.TagEntry{
		TargetID:   "env-1",
		TargetType: domain.TagTargetEnvironment,
		Value:      domain.TagValueDisableEnv,
	}, "alice")

	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("CreateTag() error = %v, want *domain.Error", err)
	}
	if derr.Type != domain.ErrorTypeAuditEmission {
		t.Errorf("error type = %v, want %v", derr.Type, domain.ErrorTypeAuditEmission)
	}
}
