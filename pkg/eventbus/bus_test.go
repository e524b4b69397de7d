package eventbus

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		if _, err := b.Subscribe("topic", func(payload interface{}) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}

	if got := b.Publish("topic", nil); got != 3 {
		t.Errorf("Publish() = %d, want 3", got)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestPublish_FailingSubscriberIsolated(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	var first, third []interface{}
	b.Subscribe("topic", func(payload interface{}) error {
		first = append(first, payload)
		return nil
	})
	b.Subscribe("topic", func(payload interface{}) error {
		return errors.New("bad subscriber")
	})
	b.Subscribe("topic", func(payload interface{}) error {
		third = append(third, payload)
		return nil
	})

	if got := b.Publish("topic", "x"); got != 2 {
		t.Errorf("Publish() = %d, want 2", got)
	}
	if len(first) != 1 || first[0] != "x" {
		t.Errorf("first subscriber observed %v, want [x]", first)
	}
	if len(third) != 1 || third[0] != "x" {
		t.Errorf("third subscriber observed %v, want [x]", third)
	}
}

func TestPublish_PanickingSubscriberIsolated(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	delivered := 0
	b.Subscribe("topic", func(payload interface{}) error {
		panic("subscriber bug")
	})
	b.Subscribe("topic", func(payload interface{}) error {
		delivered++
		return nil
	})

	if got := b.Publish("topic", nil); got != 1 {
		t.Errorf("Publish() = %d, want 1", got)
	}
	if delivered != 1 {
		t.Errorf("surviving subscriber called %d times, want 1", delivered)
	}
	if stats := b.Stats(); stats.Errors != 1 {
		t.Errorf("stats.Errors = %d, want 1", stats.Errors)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	calls := 0
	id, _ := b.Subscribe("topic", func(payload interface{}) error {
		calls++
		return nil
	})

	b.Publish("topic", nil)

	if !b.Unsubscribe(id) {
		t.Error("Unsubscribe() = false for known id, want true")
	}
	if b.Unsubscribe(id) {
		t.Error("Unsubscribe() = true for removed id, want false")
	}
	if b.Unsubscribe(SubscriptionID(9999)) {
		t.Error("Unsubscribe() = true for unknown id, want false")
	}

	b.Publish("topic", nil)
	if calls != 1 {
		t.Errorf("subscriber called %d times after unsubscribe, want 1", calls)
	}
	if got := b.SubscriberCount("topic"); got != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", got)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	if _, err := b.Subscribe("topic", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Subscribe(nil) error = %v, want ErrNilHandler", err)
	}
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	b := New()

	calls := 0
	b.Subscribe("topic", func(payload interface{}) error {
		calls++
		return nil
	})

	if err := b.Close(true, false); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Idempotent.
	if err := b.Close(true, false); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := b.Subscribe("topic", func(payload interface{}) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after close error = %v, want ErrClosed", err)
	}
	if got := b.Publish("topic", nil); got != 0 {
		t.Errorf("Publish after close = %d, want 0", got)
	}
	if err := b.PublishAsync("topic", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("PublishAsync after close error = %v, want ErrClosed", err)
	}
	if calls != 0 {
		t.Errorf("subscriber called %d times, want 0", calls)
	}
}

func TestPublishAsync_DrainedOnClose(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var got []interface{}
	b.Subscribe("topic", func(payload interface{}) error {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := b.PublishAsync("topic", i); err != nil {
			t.Fatalf("PublishAsync() error = %v", err)
		}
	}

	// wait=true drains the queue before returning.
	if err := b.Close(true, false); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Errorf("delivered %d async payloads, want 3", len(got))
	}
}

func TestClose_CancelPendingDropsQueued(t *testing.T) {
	b := New()

	block := make(chan struct{})
	b.Subscribe("blocked", func(payload interface{}) error {
		<-block
		return nil
	})

	var mu sync.Mutex
	delivered := 0
	b.Subscribe("topic", func(payload interface{}) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	// Occupy the worker, then queue events behind it.
	if err := b.PublishAsync("blocked", nil); err != nil {
		t.Fatalf("PublishAsync() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := b.PublishAsync("topic", i); err != nil {
			t.Fatalf("PublishAsync() error = %v", err)
		}
	}

	if err := b.Close(false, true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	close(block)
	<-b.workerDone

	mu.Lock()
	defer mu.Unlock()
	if delivered != 0 {
		t.Errorf("delivered %d queued payloads after cancel, want 0", delivered)
	}
}

func TestReentrantHandlerDoesNotDeadlock(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	nested := 0
	b.Subscribe("inner", func(payload interface{}) error {
		nested++
		return nil
	})
	b.Subscribe("outer", func(payload interface{}) error {
		// Re-enter the bus from inside a delivery.
		b.Publish("inner", nil)
		if _, err := b.Subscribe("inner", func(payload interface{}) error { return nil }); err != nil {
			return err
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		b.Publish("outer", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant publish deadlocked")
	}
	if nested != 1 {
		t.Errorf("nested handler called %d times, want 1", nested)
	}
}

func TestStats(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	b.Subscribe("topic", func(payload interface{}) error { return nil })
	b.Subscribe("topic", func(payload interface{}) error { return errors.New("fail") })

	b.Publish("topic", nil)
	b.Publish("topic", nil)

	stats := b.Stats()
	if stats.Published != 2 {
		t.Errorf("stats.Published = %d, want 2", stats.Published)
	}
	if stats.Delivered != 2 {
		t.Errorf("stats.Delivered = %d, want 2", stats.Delivered)
	}
	if stats.Errors != 2 {
		t.Errorf("stats.Errors = %d, want 2", stats.Errors)
	}
}

func TestTopics(t *testing.T) {
	b := New()
	defer b.Close(true, false)

	b.Subscribe("b.topic", func(payload interface{}) error { return nil })
	b.Subscribe("a.topic", func(payload interface{}) error { return nil })
	id, _ := b.Subscribe("c.topic", func(payload interface{}) error { return nil })
	b.Unsubscribe(id)

	topics := b.Topics()
	if len(topics) != 2 || topics[0] != "a.topic" || topics[1] != "b.topic" {
		t.Errorf("Topics() = %v, want [a.topic b.topic]", topics)
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id, err := b.Subscribe("topic", func(payload interface{}) error { return nil })
				if err != nil {
					return
				}
				b.Publish("topic", j)
				b.Unsubscribe(id)
			}
		}()
	}
	wg.Wait()

	if err := b.Close(true, false); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
