package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// Test helper: get Redis URL from env or default
func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

// newTestRedisQueue connects to a local Redis or skips the test. The stream
// prefix is unique per test and deleted afterwards.
func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	prefix := fmt.Sprintf("test-mangrove-%d", time.Now().UnixNano())
	q, err := newRedisQueue(RedisConfig{
		URL:    getRedisURL(),
		Stream: prefix,
		Group:  "test-group",
	}, testOptions())
	if err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := q.client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			q.client.Del(context.Background(), keys...)
		}
		_ = q.Close()
	})
	return q
}

func TestNewRedisQueue_Defaults(t *testing.T) {
	q := newTestRedisQueue(t)

	if q.config.Group != "test-group" {
		t.Errorf("Group = %q, want test-group", q.config.Group)
	}
	if q.config.Consumer == "" {
		t.Error("Consumer should default to the hostname")
	}
	if q.streamName("s") != q.config.Stream+":s" {
		t.Errorf("unexpected stream name %q", q.streamName("s"))
	}
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := newRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1"}, testOptions())
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	if err := q.Publish(ctx, "submissions", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	received := make(chan string, 1)
	err := q.Subscribe(ctx, "submissions", func(_ context.Context, _ string, data []byte) error {
		received <- string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "hello" {
			t.Errorf("got %q, want hello", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestRedisQueue_RetriesPendingEntries(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	var calls atomic.Int32
	done := make(chan struct{})
	err := q.Subscribe(ctx, "retry", func(context.Context, string, []byte) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Publish(ctx, "retry", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("message was not retried")
	}

	waitFor(t, 5*time.Second, func() bool {
		pending, err := q.client.XPending(ctx, q.streamName("retry"), q.config.Group).Result()
		return err == nil && pending.Count == 0
	})
}

func TestRedisQueue_PublishBatch(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	n, err := q.PublishBatch(ctx, []BatchMessage{
		{Subject: "a", Data: []byte("1")},
		{Subject: "a", Data: []byte("2")},
		{Subject: "b", Data: []byte("3")},
	})
	if err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	if n != 3 {
		t.Errorf("published %d, want 3", n)
	}

	length, err := q.client.XLen(ctx, q.streamName("a")).Result()
	if err != nil {
		t.Fatalf("XLen: %v", err)
	}
	if length != 2 {
		t.Errorf("stream a holds %d entries, want 2", length)
	}
}

func TestRedisQueue_SubscribeTwice(t *testing.T) {
	q := newTestRedisQueue(t)
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

func TestRedisQueue_ExistingGroup(t *testing.T) {
	q := newTestRedisQueue(t)
	ctx := context.Background()

	stream := q.streamName("grouped")
	if err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err(); err != nil {
		t.Fatalf("XGroupCreateMkStream: %v", err)
	}
	// BUSYGROUP is not an error for Subscribe
	if err := q.Subscribe(ctx, "grouped", func(context.Context, string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
}
