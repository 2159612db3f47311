package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"subpass-service/internal/domain/event"

	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap"
)

// The producer fills missing envelope defaults on a copy. Writing through the
// caller's pointer would race with the websocket hub, which marshals the same
// event from its client write pumps.
func TestPublishDoesNotMutateEvent(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var got event.Event
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.ID == "" {
			return fmt.Errorf("published event has no ID")
		}
		if got.At.IsZero() {
			return fmt.Errorf("published event has no timestamp")
		}
		return nil
	})

	p := &kafkaProducer{producer: mp, logger: zap.NewNop()}
	e := &event.Event{Type: event.TypePlanCreated, PlanID: 1}
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if e.ID != "" {
		t.Errorf("Publish wrote ID %q through the shared event", e.ID)
	}
	if !e.At.IsZero() {
		t.Errorf("Publish wrote timestamp %v through the shared event", e.At)
	}

	if err := mp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublishKeepsCallerStamp(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var got event.Event
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.ID != "evt-1" {
			return fmt.Errorf("published ID = %q, want evt-1", got.ID)
		}
		return nil
	})

	p := &kafkaProducer{producer: mp, logger: zap.NewNop()}
	e := &event.Event{
		ID:   "evt-1",
		Type: event.TypePaymentSettled,
		At:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if err := mp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
