package hub

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBroadcastReachesOnlyStoreSubscribers(t *testing.T) {
	h := New()
	narae := &Client{ID: "c1", StoreID: "narae", Send: make(chan []byte, 4)}
	other := &Client{ID: "c2", StoreID: "dasom", Send: make(chan []byte, 4)}
	h.Register(narae)
	h.Register(other)

	h.Broadcast(Event{
		EventID:   EventID(KindNewOrder, "order-1"),
		StoreID:   "narae",
		Kind:      KindNewOrder,
		Payload:   json.RawMessage(`{"order_id":"order-1"}`),
		EmittedAt: time.Now().UTC(),
	})

	select {
	case raw := <-narae.Send:
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.EventID != "NEW_ORDER:order-1" || event.StoreID != "narae" {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatal("subscriber of the event's store received nothing")
	}

	select {
	case <-other.Send:
		t.Fatal("subscriber of another store must not receive the event")
	default:
	}
}

func TestBroadcastNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := New()
	slow := &Client{ID: "c1", StoreID: "narae", Send: make(chan []byte, 1)}
	h.Register(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Broadcast(Event{EventID: EventID(KindNewCall, "call"), StoreID: "narae", Kind: KindNewCall})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber channel")
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := New()
	client := &Client{ID: "c1", StoreID: "narae", Send: make(chan []byte, 1)}
	h.Register(client)
	h.Unregister(client)
	// Double unregister after a disconnect race must not panic.
	h.Unregister(client)

	if _, open := <-client.Send; open {
		t.Fatal("send channel should be closed after unregister")
	}
	if got := h.SubscriberCount("narae"); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}
