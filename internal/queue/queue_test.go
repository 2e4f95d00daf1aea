package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"TripPlanner/internal/model"
	"TripPlanner/pkg/errors"
	"TripPlanner/storage/mq"
)

type fakeDedup struct {
	mu    sync.Mutex
	state map[string]string
	err   error
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{state: map[string]string{}}
}

func (f *fakeDedup) TryMarkProcessing(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.state[id]; ok {
		return false, nil
	}
	f.state[id] = "processing"
	return true, nil
}

func (f *fakeDedup) MarkProcessed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[id] = "completed"
	return nil
}

func (f *fakeDedup) Unmark(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, id)
	return nil
}

type fakeCounter struct {
	counts map[string]int
	err    error
}

func (f *fakeCounter) IncrementSaveCount(ctx context.Context, planID string) error {
	if f.err != nil {
		return f.err
	}
	f.counts[planID]++
	return nil
}

func copySavedBody(t *testing.T, id string) []byte {
	t.Helper()
	b, err := json.Marshal(model.PlanCopySavedMessage{MessageID: id, SourcePlanID: "p1", CopyPlanID: "p2", ViewerID: "u2"})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleCopySavedDedup(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{}}
	dedup := newFakeDedup()
	h := NewHandlers(counter, dedup)
	ctx := context.Background()

	if err := h.HandleCopySaved(ctx, copySavedBody(t, "m1")); err != nil {
		t.Fatalf("first delivery = %v", err)
	}

	err := h.HandleCopySaved(ctx, copySavedBody(t, "m1"))
	var skip *errors.SkipMessageError
	if !stderrors.As(err, &skip) {
		t.Fatalf("duplicate delivery err = %v, want SkipMessageError", err)
	}

	if counter.counts["p1"] != 1 {
		t.Fatalf("save count = %d, want 1", counter.counts["p1"])
	}
	if dedup.state["m1"] != "completed" {
		t.Fatalf("dedup state = %q", dedup.state["m1"])
	}
}

func TestHandleCopySavedFailureUnmarks(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{}, err: stderrors.New("db down")}
	dedup := newFakeDedup()
	h := NewHandlers(counter, dedup)

	if err := h.HandleCopySaved(context.Background(), copySavedBody(t, "m2")); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := dedup.state["m2"]; ok {
		t.Fatal("failed message should be unmarked for retry")
	}
}

func TestHandleCopySavedDedupUnavailable(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{}}
	dedup := newFakeDedup()
	dedup.err = stderrors.New("redis down")
	h := NewHandlers(counter, dedup)

	if err := h.HandleCopySaved(context.Background(), copySavedBody(t, "m3")); err != nil {
		t.Fatalf("HandleCopySaved() = %v", err)
	}
	if counter.counts["p1"] != 1 {
		t.Fatal("message should still be processed when dedup is unavailable")
	}
}

func TestHandleMalformed(t *testing.T) {
	h := NewHandlers(&fakeCounter{counts: map[string]int{}}, newFakeDedup())
	var skip *errors.SkipMessageError

	if err := h.HandleCopySaved(context.Background(), []byte("{")); !stderrors.As(err, &skip) {
		t.Fatalf("HandleCopySaved(malformed) = %v", err)
	}
	if err := h.HandleInvited(context.Background(), []byte("nope")); !stderrors.As(err, &skip) {
		t.Fatalf("HandleInvited(malformed) = %v", err)
	}
}

func TestHandleInvited(t *testing.T) {
	h := NewHandlers(&fakeCounter{counts: map[string]int{}}, newFakeDedup())
	body, _ := json.Marshal(model.PlanInvitedMessage{MessageID: "i1", PlanID: "p1", Emails: []string{"a@example.com"}})

	if err := h.HandleInvited(context.Background(), body); err != nil {
		t.Fatalf("HandleInvited() = %v", err)
	}
	var skip *errors.SkipMessageError
	if err := h.HandleInvited(context.Background(), body); !stderrors.As(err, &skip) {
		t.Fatalf("duplicate HandleInvited() = %v", err)
	}
}

func TestPublisherFillsEnvelope(t *testing.T) {
	var gotKey, gotID string
	var gotBody interface{}
	p := &Publisher{
		publish: func(ctx context.Context, routingKey, messageID string, body interface{}) error {
			gotKey, gotID, gotBody = routingKey, messageID, body
			return nil
		},
		now: func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}

	if err := p.PublishCopySaved(context.Background(), model.PlanCopySavedMessage{SourcePlanID: "p1"}); err != nil {
		t.Fatalf("PublishCopySaved() = %v", err)
	}
	if gotKey != mq.RoutingKeyCopySaved || !strings.HasPrefix(gotID, "copy_saved_") {
		t.Fatalf("routing key %q, message id %q", gotKey, gotID)
	}
	msg := gotBody.(model.PlanCopySavedMessage)
	if msg.MessageID != gotID || msg.OccurredAt.IsZero() {
		t.Fatalf("message = %+v", msg)
	}

	if err := p.PublishInvited(context.Background(), model.PlanInvitedMessage{PlanID: "p1"}); err != nil {
		t.Fatalf("PublishInvited() = %v", err)
	}
	if gotKey != mq.RoutingKeyInvited || !strings.HasPrefix(gotID, "invited_") {
		t.Fatalf("routing key %q, message id %q", gotKey, gotID)
	}
}
