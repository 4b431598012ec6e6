package hub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/slidescribe/backend/internal/queue"
)

type feed struct {
	ch  chan []byte
	ctx context.Context
}

func newFeeds() (map[string]*feed, SubscribeFunc) {
	feeds := map[string]*feed{}
	return feeds, func(ctx context.Context, jobID string) (<-chan []byte, error) {
		if jobID == "broken" {
			return nil, errors.New("channel closed")
		}
		f := &feed{ch: make(chan []byte, 16), ctx: ctx}
		feeds[jobID] = f
		return f.ch, nil
	}
}

func event(t *testing.T, ev queue.Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func receive(t *testing.T, ch <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case data, ok := <-ch:
		return data, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil, false
}

func TestHubReplaysAndStreams(t *testing.T) {
	feeds, subscribe := newFeeds()
	h := New(subscribe, time.Minute)
	defer h.Close()

	if err := h.Track("j1"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	first := event(t, queue.Event{Type: queue.EventExtracted, JobID: "j1", Slides: 3})
	feeds["j1"].ch <- first

	// wait until the first event is recorded
	deadline := time.Now().Add(2 * time.Second)
	var replay [][]byte
	var sub *Subscription
	for {
		var err error
		replay, sub, err = h.Attach("j1")
		if err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
		if len(replay) == 1 || time.Now().After(deadline) {
			break
		}
		sub.Detach()
		time.Sleep(10 * time.Millisecond)
	}
	defer sub.Detach()
	live := sub.C

	if len(replay) != 1 || string(replay[0]) != string(first) {
		t.Fatalf("unexpected replay %q", replay)
	}

	group := event(t, queue.Event{Type: queue.EventGroup, JobID: "j1", GroupNumber: 1})
	feeds["j1"].ch <- group
	if data, ok := receive(t, live); !ok || string(data) != string(group) {
		t.Fatalf("expected group event, got %q", data)
	}

	feeds["j1"].ch <- event(t, queue.Event{Type: queue.EventDone, JobID: "j1"})
	if _, ok := receive(t, live); !ok {
		t.Fatal("expected done event")
	}
	if _, ok := receive(t, live); ok {
		t.Fatal("expected live channel to close after the final event")
	}
	if sub.Err() != nil {
		t.Fatalf("finished job should end without error, got %v", sub.Err())
	}
	if feeds["j1"].ctx.Err() == nil {
		t.Fatal("expected subscription to be cancelled")
	}

	replay, late, err := h.Attach("j1")
	if err != nil {
		t.Fatalf("Attach() after finish error = %v", err)
	}
	if len(replay) != 3 {
		t.Fatalf("expected 3 replayed events, got %d", len(replay))
	}
	if _, ok := <-late.C; ok {
		t.Fatal("expected closed live channel for a finished job")
	}
}

func TestHubUnknownJob(t *testing.T) {
	_, subscribe := newFeeds()
	h := New(subscribe, time.Minute)

	if _, _, err := h.Attach("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
	if err := h.Track("broken"); err == nil {
		t.Fatal("expected subscribe error")
	}
	if _, _, err := h.Attach("broken"); !errors.Is(err, ErrUnknownJob) {
		t.Fatal("failed Track must not register the job")
	}
}

func TestHubForgetsAfterRetention(t *testing.T) {
	feeds, subscribe := newFeeds()
	h := New(subscribe, 20*time.Millisecond)

	if err := h.Track("j1"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	feeds["j1"].ch <- event(t, queue.Event{Type: queue.EventError, JobID: "j1", Error: "boom"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, err := h.Attach("j1"); errors.Is(err, ErrUnknownJob) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected job to be forgotten after retention")
}

func TestHubDetach(t *testing.T) {
	feeds, subscribe := newFeeds()
	h := New(subscribe, time.Minute)
	defer h.Close()

	if err := h.Track("j1"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	_, sub, err := h.Attach("j1")
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	sub.Detach()
	sub.Detach()
	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel after detach")
	}
	if sub.Err() != nil {
		t.Fatalf("detach should not report an error, got %v", sub.Err())
	}

	feeds["j1"].ch <- event(t, queue.Event{Type: queue.EventGroup, JobID: "j1", GroupNumber: 1})
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	feeds, subscribe := newFeeds()
	h := New(subscribe, time.Minute)
	defer h.Close()

	if err := h.Track("j1"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	_, sub, err := h.Attach("j1")
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer sub.Detach()

	// more events than the subscriber buffer and the feed buffer together
	for i := 1; i <= subscriberBuffer+40; i++ {
		feeds["j1"].ch <- event(t, queue.Event{Type: queue.EventGroup, JobID: "j1", GroupNumber: i})
	}

	received := 0
	for {
		if _, ok := receive(t, sub.C); !ok {
			break
		}
		received++
	}
	if received != subscriberBuffer {
		t.Fatalf("expected %d buffered events, got %d", subscriberBuffer, received)
	}
	if !errors.Is(sub.Err(), ErrSlowSubscriber) {
		t.Fatalf("expected ErrSlowSubscriber, got %v", sub.Err())
	}

	replay, _, err := h.Attach("j1")
	if err != nil {
		t.Fatalf("reattach: %v", err)
	}
	if len(replay) < subscriberBuffer+1 {
		t.Fatalf("reconnect should replay the dropped events, got %d", len(replay))
	}
}
