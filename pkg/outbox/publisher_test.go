package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func emitTestEvent(t *testing.T, db *gorm.DB, svc *Service, eventType enums.OutboxEventType) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBill,
			AggregateID:   uuid.New(),
			StoreID:       uuid.New(),
			Version:       1,
			Data:          map[string]string{"billNo": "INV-20260829-0001"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
}

type fakeSink struct {
	published map[string][][]byte
	err       error
}

func newFakeSink() *fakeSink {
	return &fakeSink{published: make(map[string][][]byte)}
}

func (f *fakeSink) Publish(_ context.Context, channel string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.published[channel] = append(f.published[channel], payload.([]byte))
	return nil
}

func TestPublisherDrainsAndMarksPublished(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	emitTestEvent(t, db, svc, enums.EventBillCreated)
	emitTestEvent(t, db, svc, enums.EventStockDepleted)

	sink := newFakeSink()
	publisher := NewPublisher(NewRepository(db), sink, nil)

	published, err := publisher.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if published != 2 {
		t.Fatalf("expected 2 published, got %d", published)
	}

	billPayloads := sink.published["pd:events:"+string(enums.EventBillCreated)]
	if len(billPayloads) != 1 {
		t.Fatalf("expected 1 bill_created message, got %d", len(billPayloads))
	}
	var envelope PayloadEnvelope
	if err := json.Unmarshal(billPayloads[0], &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.EventID == "" || envelope.Version != 1 {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}

	var pending int64
	if err := db.Model(&models.OutboxEvent{}).Where("published_at IS NULL").Count(&pending).Error; err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending events, got %d", pending)
	}
}

func TestPublisherRecordsFailures(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	emitTestEvent(t, db, svc, enums.EventBillCreated)

	sink := newFakeSink()
	sink.err = errors.New("broker down")
	publisher := NewPublisher(NewRepository(db), sink, nil)

	published, err := publisher.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if published != 0 {
		t.Fatalf("expected nothing published, got %d", published)
	}

	var row models.OutboxEvent
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.PublishedAt != nil {
		t.Fatal("event must stay unpublished after sink failure")
	}
	if row.AttemptCount != 1 {
		t.Fatalf("expected 1 attempt, got %d", row.AttemptCount)
	}
	if row.LastError == nil || *row.LastError != "broker down" {
		t.Fatalf("expected last error recorded, got %v", row.LastError)
	}

	// Recovery: next drain succeeds.
	sink.err = nil
	published, err = publisher.Drain(context.Background())
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if published != 1 {
		t.Fatalf("expected 1 published after recovery, got %d", published)
	}
}

func TestPublisherLeavesExhaustedRowsBehind(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	emitTestEvent(t, db, svc, enums.EventBillCreated)
	emitTestEvent(t, db, svc, enums.EventStockDepleted)

	// Burn out the first event; only the other one may flow.
	var oldest models.OutboxEvent
	if err := db.First(&oldest, "event_type = ?", enums.EventBillCreated).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	err := db.Model(&models.OutboxEvent{}).
		Where("id = ?", oldest.ID).
		Update("attempt_count", maxPublishAttempts).Error
	if err != nil {
		t.Fatalf("exhaust attempts: %v", err)
	}

	sink := newFakeSink()
	publisher := NewPublisher(NewRepository(db), sink, nil)

	published, err := publisher.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if published != 1 {
		t.Fatalf("expected 1 published, got %d", published)
	}
	if len(sink.published["pd:events:"+string(enums.EventBillCreated)]) != 0 {
		t.Fatal("exhausted event must never reach the sink")
	}
	if len(sink.published["pd:events:"+string(enums.EventStockDepleted)]) != 1 {
		t.Fatal("fresh event should have been delivered")
	}

	var reloaded models.OutboxEvent
	if err := db.First(&reloaded, "id = ?", oldest.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PublishedAt != nil || reloaded.AttemptCount != maxPublishAttempts {
		t.Fatalf("exhausted row must stay untouched: %+v", reloaded)
	}

	// A second drain fetches nothing extra for the dead row.
	published, err = publisher.Drain(context.Background())
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if published != 0 {
		t.Fatalf("expected nothing further, got %d", published)
	}
}
