package engine

import (
	"fmt"
	"testing"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()

	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(Event{Kind: PlainLine, Line: "hello"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Line != "hello" {
				t.Errorf("subscriber %d got line %q, want %q", i, ev.Line, "hello")
			}
		default:
			t.Errorf("subscriber %d got no event", i)
		}
	}
}

func TestBroadcaster_SlowSubscriberLosesOldest(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer without draining.
	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		b.Publish(Event{Kind: PlainLine, Line: fmt.Sprintf("line-%d", i)})
	}

	// The buffer holds the newest events; the oldest were dropped.
	first := <-ch
	want := fmt.Sprintf("line-%d", total-subscriberBuffer)
	if first.Line != want {
		t.Errorf("first buffered event = %q, want %q", first.Line, want)
	}

	// Drain the rest and confirm the newest event survived.
	var last Event
	for i := 0; i < subscriberBuffer-1; i++ {
		last = <-ch
	}

	if last.Line != fmt.Sprintf("line-%d", total-1) {
		t.Errorf("last buffered event = %q, want %q", last.Line, fmt.Sprintf("line-%d", total-1))
	}
}

func TestBroadcaster_TailIsBounded(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	for i := 0; i < tailCapacity+25; i++ {
		b.Publish(Event{Kind: PlainLine, Line: fmt.Sprintf("line-%d", i)})
	}

	tail := b.Tail()

	if len(tail) != tailCapacity {
		t.Fatalf("len(Tail()) = %d, want %d", len(tail), tailCapacity)
	}

	if tail[0] != "line-25" {
		t.Errorf("Tail()[0] = %q, want %q", tail[0], "line-25")
	}

	if tail[len(tail)-1] != fmt.Sprintf("line-%d", tailCapacity+24) {
		t.Errorf("Tail() last = %q, want %q", tail[len(tail)-1], fmt.Sprintf("line-%d", tailCapacity+24))
	}
}

func TestBroadcaster_TailSkipsEmptyLines(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	b.Publish(Event{Kind: PlainLine, Line: "kept"})
	b.Publish(Event{Kind: PlainLine, Line: ""})

	tail := b.Tail()
	if len(tail) != 1 || tail[0] != "kept" {
		t.Errorf("Tail() = %v, want [kept]", tail)
	}
}

func TestBroadcaster_CancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}

	// Cancel is safe to call twice and publishing after cancel must not panic.
	cancel()
	b.Publish(Event{Kind: PlainLine, Line: "after cancel"})
}

func TestBroadcaster_CloseClosesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()

	ch1, _ := b.Subscribe()
	ch2, _ := b.Subscribe()

	b.Close()

	if _, ok := <-ch1; ok {
		t.Error("subscriber 1 channel still open after Close")
	}

	if _, ok := <-ch2; ok {
		t.Error("subscriber 2 channel still open after Close")
	}
}
