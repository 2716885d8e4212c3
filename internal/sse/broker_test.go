package sse

import (
	"strings"
	"testing"
	"time"
)

func recvMsg(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return ""
	}
}

func TestPublishEventChange(t *testing.T) {
	b := NewBroker(time.Hour) // throttle digest out of the way after the first one
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishEventChange("created", "e1")

	msg := recvMsg(t, ch)
	if !strings.Contains(msg, "event: event.created") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, `"id":"e1"`) {
		t.Errorf("message = %q", msg)
	}

	// The first change also carries the coalesced digest.
	digest := recvMsg(t, ch)
	if !strings.Contains(digest, "event: agenda.updated") {
		t.Errorf("digest = %q", digest)
	}
}

func TestDigestThrottled(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishEventChange("created", "e1")
	recvMsg(t, ch) // event.created
	recvMsg(t, ch) // agenda.updated

	b.PublishEventChange("deleted", "e1")
	msg := recvMsg(t, ch)
	if !strings.Contains(msg, "event: event.deleted") {
		t.Errorf("message = %q", msg)
	}

	// No second digest within the throttle window.
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra message %q", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishTick(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTick(time.Date(2024, 4, 18, 12, 0, 0, 0, time.UTC))
	msg := recvMsg(t, ch)
	if !strings.Contains(msg, "event: agenda.tick") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "2024-04-18T12:00:00Z") {
		t.Errorf("message = %q", msg)
	}
}

func TestClientCount(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	// Unsubscribe is async relative to the loop; poll briefly.
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("count never returned to 0")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	b := NewBroker(0)
	b.Close()

	ch := b.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("channel from a closed broker should be closed")
	}
}
