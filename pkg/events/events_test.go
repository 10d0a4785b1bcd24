package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case event, ok := <-sub:
		require.True(t, ok, "subscriber channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBrokerDeliversInPublishOrder(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()

	types := []EventType{
		EventProjectCreatedOptimistic,
		EventIDMapped,
		EventProjectCreated,
	}
	for _, et := range types {
		broker.Publish(&Event{Type: et, TempID: "temp_1"})
	}

	for _, want := range types {
		event := receive(t, sub)
		assert.Equal(t, want, event.Type)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
	}
}

func TestBrokerAssignsDistinctIDs(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	broker.Publish(&Event{Type: EventNotification})
	broker.Publish(&Event{Type: EventNotification})

	first := receive(t, sub)
	second := receive(t, sub)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBrokerListen(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	var mu sync.Mutex
	var got []EventType
	done := make(chan struct{})

	cancel := broker.Listen(func(e *Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
		if len(got) == 2 {
			close(done)
		}
	})
	defer cancel()

	broker.Publish(&Event{Type: EventTabDeletedOptimistic})
	broker.Publish(&Event{Type: EventTabDeleted})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener not called")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventTabDeletedOptimistic, EventTabDeleted}, got)
}

func TestBrokerListenerPanicIsolated(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	broker.Listen(func(e *Event) {
		panic("boom")
	})

	received := make(chan *Event, 1)
	broker.Listen(func(e *Event) {
		received <- e
	})

	broker.Publish(&Event{Type: EventNotification, Message: "hello"})

	select {
	case e := <-received:
		assert.Equal(t, "hello", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("second listener not called after first panicked")
	}
}

func TestBrokerListenCancel(t *testing.T) {
	broker := NewBroker()
	cancel := broker.Listen(func(e *Event) {})
	assert.Equal(t, 1, broker.SubscriberCount())

	cancel()
	assert.Equal(t, 0, broker.SubscriberCount())
}

func TestBrokerUnsubscribe(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()
	assert.Equal(t, 1, broker.SubscriberCount())

	broker.Unsubscribe(sub)
	assert.Equal(t, 0, broker.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed")

	// Second unsubscribe is a no-op
	broker.Unsubscribe(sub)
}

func TestBrokerDropsOnFullSubscriber(t *testing.T) {
	broker := NewBroker()
	broker.Start()

	sub := broker.Subscribe()
	for i := 0; i < 200; i++ {
		broker.Publish(&Event{Type: EventTabDataUpdatedOptimistic})
	}
	broker.Stop()

	// The subscriber buffer caps what was kept; the rest were dropped
	assert.Equal(t, 128, len(sub))
}

func TestBrokerStopDrainsQueue(t *testing.T) {
	broker := NewBroker()

	var mu sync.Mutex
	count := 0
	broker.Listen(func(e *Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Queue before the loop runs
	for i := 0; i < 10; i++ {
		broker.Publish(&Event{Type: EventNotification})
	}
	broker.Start()
	broker.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

func TestBrokerPublishAfterStop(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	broker.Stop()

	assert.NotPanics(t, func() {
		broker.Publish(&Event{Type: EventNotification})
	})
}

func TestBrokerStopWithoutStart(t *testing.T) {
	broker := NewBroker()
	done := make(chan struct{})
	go func() {
		broker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a broker that was never started")
	}
}
