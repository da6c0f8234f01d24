package store

import (
	"testing"
	"time"
)

func TestUpdateAndGetAll(t *testing.T) {
	s := NewMemoryStore()

	s.Update(CheckResult{Name: "root", Status: "ok"})
	s.Update(CheckResult{Name: "plot", Status: "missing"})
	s.Update(CheckResult{Name: "root", Status: "stale"}) // replaces previous

	results := s.GetAll()
	if len(results) != 2 {
		t.Fatalf("len(GetAll()) = %d, want 2", len(results))
	}
	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	if byName["root"].Status != "stale" {
		t.Errorf("root status = %q, want stale (latest update wins)", byName["root"].Status)
	}
	if byName["plot"].Status != "missing" {
		t.Errorf("plot status = %q, want missing", byName["plot"].Status)
	}
}

func TestGetAllReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Update(CheckResult{Name: "root", Status: "ok"})

	snap := s.GetAll()
	snap[0].Status = "error"

	if got := s.GetAll()[0].Status; got != "ok" {
		t.Errorf("stored status = %q after mutating snapshot, want ok", got)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	s := NewMemoryStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.Update(CheckResult{Name: "root", Status: "ok"})

	select {
	case r := <-ch:
		if r.Name != "root" || r.Status != "ok" {
			t.Errorf("received %+v, want root/ok", r)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update received")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewMemoryStore()
	ch := s.Subscribe()
	s.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Errorf("channel open after Unsubscribe, want closed")
	}

	// repeated and unknown unsubscribes are safe
	s.Unsubscribe(ch)
	s.Unsubscribe(make(chan CheckResult))

	// updates after unsubscribe must not panic
	s.Update(CheckResult{Name: "root", Status: "ok"})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewMemoryStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	// overflow the buffer; Update must never block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 250; i++ {
			s.Update(CheckResult{Name: "root", Status: "ok"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Update blocked on a slow subscriber")
	}
}
