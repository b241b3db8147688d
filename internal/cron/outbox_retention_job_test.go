package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func TestOutboxRetentionJobDeletesOldPublishedRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	seedOutboxRow(t, conn, old, &old, 1)
	seedOutboxRow(t, conn, old, nil, 10)
	keepUnpublished := seedOutboxRow(t, conn, old, nil, 2)
	keepRecent := seedOutboxRow(t, conn, recent, &recent, 1)

	staleLetter := seedDeadLetter(t, conn, now.Add(-100*24*time.Hour))
	freshLetter := seedDeadLetter(t, conn, now.Add(-24*time.Hour))

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         dbpkg.FromGorm(conn),
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(conn),
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var remaining []models.OutboxEvent
	if err := conn.Order("created_at ASC").Find(&remaining).Error; err != nil {
		t.Fatalf("load remaining: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 rows to survive, got %d", len(remaining))
	}
	if remaining[0].ID != keepUnpublished || remaining[1].ID != keepRecent {
		t.Fatalf("unexpected survivors: %s, %s", remaining[0].ID, remaining[1].ID)
	}

	var letters []models.OutboxDLQ
	if err := conn.Find(&letters).Error; err != nil {
		t.Fatalf("load dead letters: %v", err)
	}
	if len(letters) != 1 || letters[0].EventID != freshLetter {
		t.Fatalf("expected only the fresh dead letter to survive, stale=%s got %+v", staleLetter, letters)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTx{},
		Repository: failingRetentionRepo{},
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func seedOutboxRow(t *testing.T, conn *gorm.DB, createdAt time.Time, publishedAt *time.Time, attempts int) uuid.UUID {
	t.Helper()
	row := models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
		AttemptCount:  attempts,
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed outbox row: %v", err)
	}
	return row.ID
}

func seedDeadLetter(t *testing.T, conn *gorm.DB, failedAt time.Time) uuid.UUID {
	t.Helper()
	row := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		AttemptCount:  10,
		FailedAt:      failedAt,
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed dead letter: %v", err)
	}
	return row.EventID
}

type failingRetentionRepo struct{}

func (failingRetentionRepo) DeletePublishedBefore(context.Context, *gorm.DB, time.Time, int) (int64, error) {
	return 0, errors.New("boom")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
