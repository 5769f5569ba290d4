package sse

import (
	"context"
	"testing"
	"time"
)

func next(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestPublishReachesAllClients(t *testing.T) {
	svc := NewService()
	a, b := svc.AddClient(), svc.AddClient()
	if next(t, a).Type != EventConnected || next(t, b).Type != EventConnected {
		t.Fatal("expected connected events first")
	}

	svc.Publish(Event{Type: EventScriptChanged, Data: 42})
	if ev := next(t, a); ev.Type != EventScriptChanged || ev.Data != 42 {
		t.Errorf("client a got %+v", ev)
	}
	if ev := next(t, b); ev.Type != EventScriptChanged {
		t.Errorf("client b got %+v", ev)
	}

	svc.RemoveClient(a.ID)
	select {
	case <-a.Done():
	default:
		t.Error("removed client should be done")
	}
	if svc.GetClientCount() != 1 {
		t.Errorf("client count = %d", svc.GetClientCount())
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	svc := NewService()
	svc.bufferSize = 2
	c := svc.AddClient()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			svc.Publish(Event{Type: EventPing})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full client")
	}
	if len(c.Events) != 2 {
		t.Errorf("buffered events = %d", len(c.Events))
	}
}

func TestAlerter(t *testing.T) {
	svc := NewService()
	c := svc.AddClient()
	next(t, c)

	NewAlerter(svc, 5*time.Second).Alert(LevelWarning, "Script is locked")
	ev := next(t, c)
	alert, ok := ev.Data.(Alert)
	if ev.Type != EventAlert || !ok {
		t.Fatalf("event = %+v", ev)
	}
	if alert.Level != LevelWarning || alert.DismissAfterMS != 5000 || alert.Message != "Script is locked" {
		t.Errorf("alert = %+v", alert)
	}
}

func TestKeepAlive(t *testing.T) {
	svc := NewService()
	c := svc.AddClient()
	next(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.KeepAlive(ctx, time.Millisecond)

	if ev := next(t, c); ev.Type != EventPing {
		t.Errorf("expected ping, got %s", ev.Type)
	}
}

func TestCloseAllEndsStreams(t *testing.T) {
	svc := NewService()
	a, b := svc.AddClient(), svc.AddClient()
	svc.CloseAll()

	for _, c := range []*Client{a, b} {
		select {
		case <-c.Done():
		default:
			t.Errorf("client %s still open", c.ID)
		}
	}
	if svc.GetClientCount() != 0 {
		t.Errorf("client count = %d", svc.GetClientCount())
	}
	// Removing an already closed client is a no-op.
	svc.RemoveClient(a.ID)
}
