package bus_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	b := bus.New()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	ev := &domain.ScanEvent{ID: "e1"}
	b.Publish(bus.Notification{Kind: domain.KindNew, Event: ev})

	select {
	case n := <-ch1:
		assert.Equal(t, domain.KindNew, n.Kind)
		assert.Equal(t, "e1", n.Event.ID)
	case <-time.After(time.Second):
		t.Fatal("ch1 did not receive notification")
	}

	select {
	case n := <-ch2:
		assert.Equal(t, domain.KindNew, n.Kind)
	case <-time.After(time.Second):
		t.Fatal("ch2 did not receive notification")
	}
}

func TestUnsubscribe_StopsDeliveryAndClosesChannel(t *testing.T) {
	b := bus.New()
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	// publishing after unsubscribe must not panic
	b.Publish(bus.Notification{Kind: domain.KindProcessed, Event: &domain.ScanEvent{}})
}

func TestPublish_DropsWhenSubscriberFull(t *testing.T) {
	b := bus.New()
	ch := b.Subscribe()

	for i := 0; i < 300; i++ {
		b.Publish(bus.Notification{Kind: domain.KindRetrying, Event: &domain.ScanEvent{}})
	}

	// must not have blocked; channel just holds its capacity worth
	assert.LessOrEqual(t, len(ch), cap(ch))
}

func TestShutdown_ClosesAllSubscribers(t *testing.T) {
	b := bus.New()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Shutdown()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)
}
