package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/ports"
)

type recordingMailer struct {
	mu       sync.Mutex
	sent     []ports.Message
	failures int
}

func (m *recordingMailer) Send(_ context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("provider unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) snapshot() []ports.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Message(nil), m.sent...)
}

func TestMailDispatcher_DeliversInOrderPerRecipient(t *testing.T) {
	inner := &recordingMailer{}
	d := NewMailDispatcher(4, inner, zerolog.Nop())
	d.Start(context.Background())

	subjects := []string{"one", "two", "three", "four"}
	for _, s := range subjects {
		if err := d.Send(context.Background(), ports.Message{To: "awa@example.org", Subject: s}); err != nil {
			t.Fatalf("Send(%q): %v", s, err)
		}
	}
	d.Close()

	sent := inner.snapshot()
	if len(sent) != len(subjects) {
		t.Fatalf("expected %d messages, got %d", len(subjects), len(sent))
	}
	for i, s := range subjects {
		if sent[i].Subject != s {
			t.Errorf("message %d: expected %q, got %q", i, s, sent[i].Subject)
		}
	}
}

func TestMailDispatcher_RetriesTransientFailures(t *testing.T) {
	inner := &recordingMailer{failures: 2}
	d := NewMailDispatcher(1, inner, zerolog.Nop())
	d.backoff = time.Millisecond
	d.Start(context.Background())

	if err := d.Send(context.Background(), ports.Message{To: "awa@example.org", Subject: "retry"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	d.Close()

	if got := len(inner.snapshot()); got != 1 {
		t.Fatalf("expected delivery after retries, got %d messages", got)
	}
}

func TestMailDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &recordingMailer{failures: maxAttempts}
	d := NewMailDispatcher(1, inner, zerolog.Nop())
	d.backoff = time.Millisecond
	d.Start(context.Background())

	_ = d.Send(context.Background(), ports.Message{To: "awa@example.org"})
	d.Close()

	if got := len(inner.snapshot()); got != 0 {
		t.Fatalf("expected no delivery, got %d", got)
	}
}

func TestMailDispatcher_SendAfterClose(t *testing.T) {
	d := NewMailDispatcher(1, &recordingMailer{}, zerolog.Nop())
	d.Start(context.Background())
	d.Close()

	if err := d.Send(context.Background(), ports.Message{To: "awa@example.org"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	// Closing twice is harmless.
	d.Close()
}

func TestMailDispatcher_QueueFull(t *testing.T) {
	// No workers started, so the single shard fills up.
	d := NewMailDispatcher(1, &recordingMailer{}, zerolog.Nop())

	var err error
	for i := 0; i <= channelBuffer; i++ {
		err = d.Send(context.Background(), ports.Message{To: "awa@example.org"})
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestMailDispatcher_ShardIndexStable(t *testing.T) {
	d := NewMailDispatcher(8, &recordingMailer{}, zerolog.Nop())
	first := d.shardIndex("awa@example.org")
	for i := 0; i < 10; i++ {
		if d.shardIndex("awa@example.org") != first {
			t.Fatal("shard index must be deterministic")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}
