package ws

import (
	"errors"
	"testing"
	"time"
)

type fakeSubscriber struct {
	received chan []byte
	failSend bool
	closed   chan struct{}
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		received: make(chan []byte, 8),
		closed:   make(chan struct{}),
	}
}

func (f *fakeSubscriber) Send(payload []byte) error {
	if f.failSend {
		return errors.New("send failed")
	}
	f.received <- payload
	return nil
}

func (f *fakeSubscriber) Close() {
	close(f.closed)
}

func waitFor(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func assertSilent(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case payload := <-ch:
		t.Fatalf("unexpected delivery: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesOnlyMatchingRoom(t *testing.T) {
	hub := NewHub()
	inRoom := newFakeSubscriber()
	otherRoom := newFakeSubscriber()

	hub.Join("project:1", inRoom)
	hub.Join("project:2", otherRoom)

	hub.Publish("project:1", []byte("hello"))

	if got := waitFor(t, inRoom.received); string(got) != "hello" {
		t.Fatalf("unexpected payload: %s", got)
	}
	assertSilent(t, otherRoom.received)
}

func TestPublishToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.Publish("project:none", []byte("into the void"))

	// The hub must still work afterwards.
	sub := newFakeSubscriber()
	hub.Join("project:none", sub)
	hub.Publish("project:none", []byte("second"))
	if got := waitFor(t, sub.received); string(got) != "second" {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestJoinTwiceDeliversOnce(t *testing.T) {
	hub := NewHub()
	sub := newFakeSubscriber()

	hub.Join("project:1", sub)
	hub.Join("project:1", sub)
	hub.Publish("project:1", []byte("once"))

	waitFor(t, sub.received)
	assertSilent(t, sub.received)
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := newFakeSubscriber()

	hub.Join("project:1", sub)
	hub.Leave("project:1", sub)
	hub.Publish("project:1", []byte("gone"))

	assertSilent(t, sub.received)
}

func TestFailingSubscriberIsEvicted(t *testing.T) {
	hub := NewHub()
	broken := newFakeSubscriber()
	broken.failSend = true
	healthy := newFakeSubscriber()

	hub.Join("project:1", broken)
	hub.Join("project:1", healthy)

	hub.Publish("project:1", []byte("first"))
	waitFor(t, healthy.received)

	select {
	case <-broken.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("failing subscriber was never closed")
	}

	hub.Publish("project:1", []byte("second"))
	if got := waitFor(t, healthy.received); string(got) != "second" {
		t.Fatalf("unexpected payload: %s", got)
	}
}
