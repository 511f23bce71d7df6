package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const code = "#ORD-2025-042"

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	hub := NewHub(4, 50*time.Millisecond)
	tab1 := hub.Subscribe(code)
	tab2 := hub.Subscribe(code)
	other := hub.Subscribe("#ORD-2025-043")

	n := hub.Publish(code, Event{Type: EventPaid, PaidAmount: 30000})
	assert.Equal(t, 2, n)

	for _, sub := range []*Subscription{tab1, tab2} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, Event{Type: EventPaid, PaidAmount: 30000}, ev)
		default:
			t.Fatal("expected event")
		}
	}
	select {
	case <-other.Events():
		t.Fatal("other order must not receive the event")
	default:
	}
}

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	hub := NewHub(1, 10*time.Millisecond)
	assert.Equal(t, 0, hub.Publish(code, Event{Type: EventPaid, PaidAmount: 1}))

	sub := hub.Subscribe(code)
	select {
	case <-sub.Events():
		t.Fatal("events published before subscribing are not queued")
	default:
	}
}

func TestUnsubscribeDropsEmptyEntries(t *testing.T) {
	hub := NewHub(1, 10*time.Millisecond)
	a := hub.Subscribe(code)
	b := hub.Subscribe(code)
	assert.Equal(t, 2, hub.Subscribers(code))

	hub.Unsubscribe(code, a)
	assert.Equal(t, 1, hub.Subscribers(code))
	assert.Equal(t, 1, hub.Codes())

	hub.Unsubscribe(code, b)
	hub.Unsubscribe(code, b)
	assert.Equal(t, 0, hub.Subscribers(code))
	assert.Equal(t, 0, hub.Codes())

	select {
	case <-b.Done():
	default:
		t.Fatal("done must be closed after unsubscribe")
	}
}

func TestPublishAfterUnsubscribeDoesNotDeliver(t *testing.T) {
	hub := NewHub(2, 10*time.Millisecond)
	closed := hub.Subscribe(code)
	live := hub.Subscribe(code)
	hub.Unsubscribe(code, closed)

	assert.Equal(t, 1, hub.Publish(code, Event{Type: EventPaid, PaidAmount: 5}))
	select {
	case <-closed.Events():
		t.Fatal("closed subscription received an event")
	default:
	}
	assert.Len(t, live.Events(), 1)
}

func TestStalledSubscriberIsPruned(t *testing.T) {
	hub := NewHub(1, 20*time.Millisecond)
	stalled := hub.Subscribe(code)

	require.Equal(t, 1, hub.Publish(code, Event{Type: "progress"}))

	start := time.Now()
	assert.Equal(t, 0, hub.Publish(code, Event{Type: EventPaid, PaidAmount: 9}))
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, 0, hub.Subscribers(code))
	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled subscription must be closed")
	}
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	hub := NewHub(16, 50*time.Millisecond)
	sub := hub.Subscribe(code)

	for i := int64(1); i <= 10; i++ {
		hub.Publish(code, Event{Type: "progress", PaidAmount: i})
	}
	for i := int64(1); i <= 10; i++ {
		ev := <-sub.Events()
		assert.Equal(t, i, ev.PaidAmount)
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub(4, 5*time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(code)
			hub.Unsubscribe(code, sub)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(code, Event{Type: EventPaid, PaidAmount: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers(code))
}
