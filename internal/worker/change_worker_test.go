package worker

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"spendwise/internal/amqp"
)

type recordingCache struct {
	calls []call
}

type call struct {
	owner  string
	months []string
}

func (c *recordingCache) Invalidate(ownerID string, months []string) {
	c.calls = append(c.calls, call{ownerID, months})
}

type fakeSource struct {
	msgs []*amqp.ChangeMessage
	err  error
}

func (s *fakeSource) ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error {
	for _, m := range s.msgs {
		if err := handler(m); err != nil {
			return err
		}
	}
	return s.err
}

func TestHandleChangeMessage(t *testing.T) {
	cache := &recordingCache{}
	w := NewChangeWorker(cache)
	ctx := context.Background()

	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage("other", "U1", []string{"2024-03"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage("other", "U1", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage("other", "U1", []string{"2024-13"})); err != nil {
		t.Fatalf("bad month should be dropped, got %v", err)
	}
	if err := w.HandleChangeMessage(ctx, &amqp.ChangeMessage{}); err == nil {
		t.Fatalf("expected error for message without owner")
	}

	want := []call{
		{"U1", []string{"2024-03"}},
		{"U1", []string{}},
	}
	if !reflect.DeepEqual(cache.calls, want) {
		t.Fatalf("calls = %#v, want %#v", cache.calls, want)
	}
	if s := w.Stats(); s.Processed != 2 || s.Rejected != 2 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestRun(t *testing.T) {
	cache := &recordingCache{}
	w := NewChangeWorker(cache)

	src := &fakeSource{
		msgs: []*amqp.ChangeMessage{amqp.NewChangeMessage("other", "U2", []string{"2024-01", "2024-02"})},
		err:  context.Canceled,
	}
	if err := w.Run(context.Background(), src); err != nil {
		t.Fatalf("cancellation should not be an error, got %v", err)
	}
	if len(cache.calls) != 1 || cache.calls[0].owner != "U2" {
		t.Fatalf("calls = %#v", cache.calls)
	}

	boom := errors.New("boom")
	if err := w.Run(context.Background(), &fakeSource{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
