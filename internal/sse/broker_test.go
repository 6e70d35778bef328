package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/crmdesk/internal/models"
	"github.com/starford/crmdesk/internal/store"
	"github.com/starford/crmdesk/internal/testutil"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "customer.created", Data: map[string]string{"id": "c1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: customer.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"c1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishChange_DoingsThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First customer change should trigger doings.updated.
	b.PublishChange(store.Event{Kind: store.KindCustomer, Op: store.OpCreated, ID: "a"})
	// Second change immediately should NOT trigger another doings.updated.
	b.PublishChange(store.Event{Kind: store.KindCustomer, Op: store.OpUpdated, ID: "b"})
	// Settings changes never do.
	b.PublishChange(store.Event{Kind: store.KindSettings, Op: store.OpUpdated})
	// Unknown kinds are dropped.
	b.PublishChange(store.Event{Kind: "unknown"})

	time.Sleep(50 * time.Millisecond)
	doingsCount := 0
	otherCount := 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "doings.updated") {
			doingsCount++
		} else {
			otherCount++
		}
	}

	if otherCount != 3 {
		t.Errorf("change events = %d, want 3", otherCount)
	}
	if doingsCount != 1 {
		t.Errorf("doings events = %d, want 1 (throttled)", doingsCount)
	}
}

func TestEventFor(t *testing.T) {
	tests := []struct {
		ev   store.Event
		want string
	}{
		{store.Event{Kind: store.KindCustomer, Op: store.OpDeleted, ID: "x"}, "customer.deleted"},
		{store.Event{Kind: store.KindCustomers, Op: store.OpReplaced}, "customers.replaced"},
		{store.Event{Kind: store.KindCustomers, Op: store.OpImported}, "customers.imported"},
		{store.Event{Kind: store.KindSettings, Op: store.OpUpdated}, "settings.updated"},
		{store.Event{Kind: store.KindPreferences, Op: store.OpUpdated}, "preferences.updated"},
		{store.Event{Kind: "unknown"}, ""},
	}
	for _, tt := range tests {
		if got, _ := eventFor(tt.ev); got != tt.want {
			t.Errorf("eventFor(%+v) = %q, want %q", tt.ev, got, tt.want)
		}
	}
}

func TestAttach(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	st := testutil.TestStore(t, nil)
	cancel := b.Attach(st)
	defer cancel()

	c, err := st.Save(models.Customer{CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %q, want customer.created + doings.updated", msgs)
	}
	if !strings.Contains(msgs[0], "event: customer.created") || !strings.Contains(msgs[0], c.ID) {
		t.Errorf("first message = %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "customer.updated", Data: map[string]string{"id": "x"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: customer.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+6; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n != clientBuffer {
		t.Errorf("delivered = %d, want %d", n, clientBuffer)
	}
}

func TestFrame(t *testing.T) {
	got, err := frame(7, Event{Type: "customer.created", Data: map[string]string{"id": "c1"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "id: 7\nevent: customer.created\ndata: {\"id\":\"c1\"}\n\n"
	if string(got) != want {
		t.Errorf("frame = %q, want %q", got, want)
	}

	if _, err := frame(1, Event{Type: "bad", Data: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestSequenceIDs(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "a", Data: map[string]string{}})
	b.Publish(Event{Type: "b", Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %q", msgs)
	}
	if !strings.HasPrefix(msgs[0], "id: 1\n") || !strings.HasPrefix(msgs[1], "id: 2\n") {
		t.Errorf("ids not sequential: %q", msgs)
	}
}

func TestSSEHandler_KeepAlive(t *testing.T) {
	b := NewBroker(time.Second, WithKeepAlive(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	b.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, ": ping\n\n") {
		t.Errorf("missing keep-alive ping: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "customer.updated", Data: map[string]string{"id": "x"}})
	b.PublishChange(store.Event{Kind: store.KindCustomer, Op: store.OpUpdated, ID: "x"})
}
