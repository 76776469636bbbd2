package server

import (
	"encoding/json"
	"testing"
)

func TestBroker(t *testing.T) {
	b := NewBroker()
	a1 := b.Subscribe("a")
	a2 := b.Subscribe("a")
	other := b.Subscribe("b")

	b.Publish("a", SSEEvent{Type: EventAdvance, Index: 2})

	for _, ch := range []chan []byte{a1, a2} {
		select {
		case data := <-ch:
			var ev SSEEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatal(err)
			}
			if ev.Type != EventAdvance || ev.Index != 2 {
				t.Errorf("event = %+v", ev)
			}
		default:
			t.Error("subscriber did not receive event")
		}
	}
	select {
	case <-other:
		t.Error("event leaked to another session")
	default:
	}

	b.Unsubscribe("a", a1)
	b.Unsubscribe("a", a2)
	if n := b.Subscribers("a"); n != 0 {
		t.Errorf("subscribers after unsubscribe = %d", n)
	}
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("s")
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish("s", SSEEvent{Type: EventGuess, Index: i})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want %d", len(ch), cap(ch))
	}
}
