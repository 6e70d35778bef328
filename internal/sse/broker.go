// Package sse implements a Server-Sent Events broker that pushes store
// changes to connected shells.
package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/crmdesk/internal/store"
)

const (
	clientBuffer     = 64
	defaultKeepAlive = 30 * time.Second
	doingsEvent      = "doings.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// envelope is what travels to the broker loop. Events that touch
// customers are followed by a throttled doings.updated.
type envelope struct {
	event         Event
	touchesDoings bool
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set, the frame sequence and the
// doings throttle; public methods talk to it over channels.
type Broker struct {
	doingsMin time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan envelope
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sets the interval of comment frames sent to idle clients.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// NewBroker creates a new SSE broker. doingsThrottle is the minimum interval
// between two doings.updated events.
func NewBroker(doingsThrottle time.Duration, opts ...BrokerOption) *Broker {
	if doingsThrottle <= 0 {
		doingsThrottle = 2 * time.Second
	}

	b := &Broker{
		doingsMin:     doingsThrottle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan envelope, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}

	go b.run()
	return b
}

// frame renders one event in the text/event-stream wire format.
func frame(id uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(payload)+len(ev.Type)+32)
	buf = append(buf, "id: "...)
	buf = strconv.AppendUint(buf, id, 10)
	buf = append(buf, "\nevent: "...)
	buf = append(buf, ev.Type...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, payload...)
	buf = append(buf, "\n\n"...)
	return buf, nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq        uint64
		lastDoings time.Time
	)

	broadcast := func(ev Event) {
		raw, err := frame(seq+1, ev)
		if err != nil {
			return
		}
		seq++
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client; drop rather than block the loop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case env := <-b.publishCh:
			broadcast(env.event)
			if !env.touchesDoings {
				continue
			}
			if now := time.Now(); now.Sub(lastDoings) >= b.doingsMin {
				lastDoings = now
				broadcast(Event{Type: doingsEvent, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) send(env envelope) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- env:
	case <-b.stopped:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.send(envelope{event: event})
}

// PublishChange publishes a store change. Customer changes are followed
// by a throttled doings.updated event.
func (b *Broker) PublishChange(ev store.Event) {
	typ, data := eventFor(ev)
	if typ == "" {
		return
	}
	b.send(envelope{
		event:         Event{Type: typ, Data: data},
		touchesDoings: ev.Kind == store.KindCustomer || ev.Kind == store.KindCustomers,
	})
}

// Attach forwards all changes of st to the broker until cancel is called.
func (b *Broker) Attach(st *store.Store) (cancel func()) {
	return st.Subscribe(b.PublishChange)
}

// eventFor maps a store change to an SSE event type and payload.
func eventFor(ev store.Event) (string, map[string]string) {
	switch ev.Kind {
	case store.KindCustomer:
		return "customer." + string(ev.Op), map[string]string{"id": ev.ID}
	case store.KindCustomers:
		return "customers." + string(ev.Op), map[string]string{}
	case store.KindSettings:
		return "settings.updated", map[string]string{}
	case store.KindPreferences:
		return "preferences.updated", map[string]string{}
	}
	return "", nil
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
