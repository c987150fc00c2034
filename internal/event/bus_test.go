package event

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	topic Topic
	value int
}

func (e testEvent) Topic() Topic { return e.topic }

func TestBus_PublishSync(t *testing.T) {
	b := New()

	var got []int
	b.Subscribe("test.topic", func(e Event) {
		got = append(got, e.(testEvent).value)
	})

	b.PublishSync(testEvent{topic: "test.topic", value: 1})
	b.PublishSync(testEvent{topic: "test.topic", value: 2})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Expected [1 2], got %v", got)
	}
}

func TestBus_PublishSync_NoSubscribers(t *testing.T) {
	b := New()

	// Must not panic.
	b.PublishSync(testEvent{topic: "nobody.home"})

	if b.Stats().Published != 1 {
		t.Errorf("Expected 1 published, got %d", b.Stats().Published)
	}
}

func TestBus_TopicIsolation(t *testing.T) {
	b := New()

	var aCount, bCount int
	b.Subscribe("topic.a", func(Event) { aCount++ })
	b.Subscribe("topic.b", func(Event) { bCount++ })

	b.PublishSync(testEvent{topic: "topic.a"})
	b.PublishSync(testEvent{topic: "topic.a"})
	b.PublishSync(testEvent{topic: "topic.b"})

	if aCount != 2 {
		t.Errorf("Expected 2 deliveries to topic.a, got %d", aCount)
	}
	if bCount != 1 {
		t.Errorf("Expected 1 delivery to topic.b, got %d", bCount)
	}
}

func TestBus_TopicAll(t *testing.T) {
	b := New()

	var all int
	b.Subscribe(TopicAll, func(Event) { all++ })

	b.PublishSync(testEvent{topic: "x"})
	b.PublishSync(testEvent{topic: "y"})

	if all != 2 {
		t.Errorf("Expected wildcard handler to see 2 events, got %d", all)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New()

	var count int
	sub := b.Subscribe("test", func(Event) { count++ })

	b.PublishSync(testEvent{topic: "test"})
	b.Unsubscribe(sub)
	b.PublishSync(testEvent{topic: "test"})

	if count != 1 {
		t.Errorf("Expected 1 delivery after unsubscribe, got %d", count)
	}
}

func TestBus_PublishAsync(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{}, 1)

	b.Subscribe("async.topic", func(e Event) {
		mu.Lock()
		got = append(got, e.(testEvent).value)
		mu.Unlock()
		done <- struct{}{}
	})

	b.Publish(testEvent{topic: "async.topic", value: 7})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for async delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("Expected [7], got %v", got)
	}
}

func TestBus_Close_WaitsForInflight(t *testing.T) {
	b := New()

	started := make(chan struct{})
	b.Subscribe("slow", func(Event) {
		close(started)
		time.Sleep(50 * time.Millisecond)
	})

	b.Publish(testEvent{topic: "slow"})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		t.Errorf("Close returned error: %v", err)
	}

	// Publishes after close are dropped.
	b.PublishSync(testEvent{topic: "slow"})
	if b.Stats().Published != 1 {
		t.Errorf("Expected publish after close to be dropped, got %d", b.Stats().Published)
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	b := New()

	b.Subscribe("boom", func(Event) { panic("handler bug") })

	var after int
	b.Subscribe("boom", func(Event) { after++ })

	b.PublishSync(testEvent{topic: "boom"})

	if after != 1 {
		t.Error("Expected second handler to run despite first handler panic")
	}
	if b.Stats().Panics != 1 {
		t.Errorf("Expected 1 recorded panic, got %d", b.Stats().Panics)
	}
}
