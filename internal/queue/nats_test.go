package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// setupTestNATS creates an embedded NATS server for testing
func setupTestNATS(t *testing.T) (*server.Server, string) {
	t.Helper()
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random port
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("Failed to create NATS server: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns, ns.ClientURL()
}

func newTestNATSQueue(t *testing.T) *NATSQueue {
	t.Helper()
	_, url := setupTestNATS(t)

	q, err := newNATSQueue(NATSConfig{URL: url, Stream: "TEST"}, testOptions())
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestNewNATSQueue(t *testing.T) {
	q := newTestNATSQueue(t)

	if q.conn == nil {
		t.Error("Expected connection to be initialized")
	}
	if q.js == nil {
		t.Error("Expected JetStream context to be initialized")
	}
	if q.config.Stream != "TEST" {
		t.Errorf("Stream = %q, want TEST", q.config.Stream)
	}
}

func TestNewNATSQueue_InvalidURL(t *testing.T) {
	q, err := newNATSQueue(NATSConfig{URL: "nats://127.0.0.1:1"}, testOptions())
	if err == nil {
		_ = q.Close()
		t.Fatal("Expected error with invalid URL")
	}
}

func TestNewNATSQueueWithConn_DefaultStream(t *testing.T) {
	_, url := setupTestNATS(t)
	conn, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	q, err := newNATSQueueWithConn(conn, NATSConfig{}, Options{})
	if err != nil {
		t.Fatalf("newNATSQueueWithConn: %v", err)
	}
	defer func() { _ = q.Close() }()

	if q.config.Stream != "MANGROVE" {
		t.Errorf("Stream = %q, want MANGROVE", q.config.Stream)
	}
	if q.streamName("mangrove.submissions") != "MANGROVE-mangrove_submissions" {
		t.Errorf("unexpected stream name %q", q.streamName("mangrove.submissions"))
	}
}

func TestNATSQueue_PublishSubscribe(t *testing.T) {
	q := newTestNATSQueue(t)
	ctx := context.Background()

	// Published before the subscriber exists; the stream keeps it
	if err := q.Publish(ctx, "mangrove.submissions", []byte("early")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	var mu sync.Mutex
	var got []string
	err := q.Subscribe(ctx, "mangrove.submissions", func(_ context.Context, _ string, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(data))
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := q.Publish(ctx, "mangrove.submissions", []byte("late")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "early" || got[1] != "late" {
		t.Errorf("got %v, want [early late]", got)
	}
}

func TestNATSQueue_RedeliversOnHandlerError(t *testing.T) {
	q := newTestNATSQueue(t)
	ctx := context.Background()

	var calls atomic.Int32
	done := make(chan struct{})
	err := q.Subscribe(ctx, "retry.subject", func(context.Context, string, []byte) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Publish(ctx, "retry.subject", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("message was not redelivered")
	}
	if calls.Load() != 2 {
		t.Errorf("handler called %d times, want 2", calls.Load())
	}
}

func TestNATSQueue_PublishBatch(t *testing.T) {
	q := newTestNATSQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := q.PublishBatch(ctx, []BatchMessage{
		{Subject: "batch.a", Data: []byte("1")},
		{Subject: "batch.a", Data: []byte("2")},
		{Subject: "batch.b", Data: []byte("3")},
	})
	if err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	if n != 3 {
		t.Errorf("published %d, want 3", n)
	}

	info, err := q.js.StreamInfo(q.streamName("batch.a"))
	if err != nil {
		t.Fatalf("StreamInfo: %v", err)
	}
	if info.State.Msgs != 2 {
		t.Errorf("stream holds %d messages, want 2", info.State.Msgs)
	}
}

func TestNATSQueue_SubscribeTwice(t *testing.T) {
	q := newTestNATSQueue(t)
	noop := func(context.Context, string, []byte) error { return nil }

	if err := q.Subscribe(context.Background(), "dup", noop); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Subscribe(context.Background(), "dup", noop); err == nil {
		t.Error("expected error on duplicate subscription")
	}
	if err := q.Unsubscribe("dup"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("dup"); err == nil {
		t.Error("expected error unsubscribing twice")
	}
}

func TestNATSQueue_ContextCancelUnsubscribes(t *testing.T) {
	q := newTestNATSQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	err := q.Subscribe(ctx, "cancel.me", func(context.Context, string, []byte) error { return nil })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	waitFor(t, 2*time.Second, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		_, ok := q.subscriptions["cancel.me"]
		return !ok
	})
}

func TestNATSQueue_PublishAfterClose(t *testing.T) {
	q := newTestNATSQueue(t)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Publish(context.Background(), "closed", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
}

func TestSanitizeConsumerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"mangrove.submissions", "mangrove_submissions"},
		{"a.*.>", "a____"},
		{"Form-01_x", "Form-01_x"},
	}
	for _, tt := range tests {
		if got := sanitizeConsumerName(tt.in); got != tt.want {
			t.Errorf("sanitizeConsumerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
