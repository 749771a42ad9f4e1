package events

import "testing"

type testEvent string

func (e testEvent) EventType() string { return string(e) }

func TestBusFanOut(t *testing.T) {
	bus := NewBus(8)
	a, cancelA, _ := bus.Subscribe(4)
	b, cancelB, _ := bus.Subscribe(4)
	defer cancelA()
	defer cancelB()

	bus.Emit(testEvent("one"))

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case evt := <-ch:
			if evt.EventType() != "one" {
				t.Fatalf("subscriber %s: unexpected event %q", name, evt.EventType())
			}
		default:
			t.Fatalf("subscriber %s: no event delivered", name)
		}
	}
}

func TestBusBacklogReplay(t *testing.T) {
	bus := NewBus(2)
	bus.Emit(testEvent("one"))
	bus.Emit(testEvent("two"))
	bus.Emit(testEvent("three"))

	_, cancel, backlog := bus.Subscribe(4)
	defer cancel()

	if len(backlog) != 2 {
		t.Fatalf("backlog should hold the 2 most recent events, got %d", len(backlog))
	}
	if backlog[0].EventType() != "two" || backlog[1].EventType() != "three" {
		t.Fatalf("unexpected backlog order: %q %q", backlog[0].EventType(), backlog[1].EventType())
	}
}

func TestBusSlowSubscriberDropsEvents(t *testing.T) {
	bus := NewBus(8)
	ch, cancel, _ := bus.Subscribe(1)
	defer cancel()

	bus.Emit(testEvent("one"))
	bus.Emit(testEvent("two")) // dropped, channel full

	evt := <-ch
	if evt.EventType() != "one" {
		t.Fatalf("unexpected event %q", evt.EventType())
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected drop, got %q", extra.EventType())
	default:
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus(8)
	ch, cancel, _ := bus.Subscribe(1)
	cancel()
	cancel() // idempotent
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	bus.Emit(testEvent("after")) // must not panic on removed subscriber
}
