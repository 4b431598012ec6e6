// Package hub buffers the events of running jobs so WebSocket clients that
// connect after a job started still receive every event.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/slidescribe/backend/internal/queue"
	"github.com/slidescribe/backend/pkg/logger"
)

// DefaultRetention is how long the events of a finished job stay available.
const DefaultRetention = 10 * time.Minute

const subscriberBuffer = 64

var (
	ErrUnknownJob = errors.New("unknown job")
	// ErrSlowSubscriber ends a subscription that fell too far behind the
	// job's events.
	ErrSlowSubscriber = errors.New("subscriber too slow")
)

// SubscribeFunc delivers the raw events of a job until ctx is cancelled or the
// returned channel is closed.
type SubscribeFunc func(ctx context.Context, jobID string) (<-chan []byte, error)

type job struct {
	events [][]byte
	final  bool
	subs   map[*Subscription]struct{}
	cancel context.CancelFunc
}

// Hub tracks jobs and fans their events out to subscribers.
type Hub struct {
	mu        sync.Mutex
	subscribe SubscribeFunc
	retention time.Duration
	jobs      map[string]*job
}

// New returns a Hub receiving events through subscribe.
func New(subscribe SubscribeFunc, retention time.Duration) *Hub {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Hub{
		subscribe: subscribe,
		retention: retention,
		jobs:      make(map[string]*job),
	}
}

// Track starts collecting the events of jobID. It must be called before the
// job is enqueued.
func (h *Hub) Track(jobID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := h.subscribe(ctx, jobID)
	if err != nil {
		cancel()
		return err
	}

	h.mu.Lock()
	h.jobs[jobID] = &job{subs: make(map[*Subscription]struct{}), cancel: cancel}
	h.mu.Unlock()

	go h.collect(jobID, events)
	return nil
}

func (h *Hub) collect(jobID string, events <-chan []byte) {
	for data := range events {
		var ev queue.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("[Hub] Dropping undecodable event", "job_id", jobID, "err", err)
			continue
		}
		if h.publish(jobID, data, ev.Final()) {
			break
		}
	}
	h.finish(jobID)
}

// publish records data and hands it to every subscriber. It reports whether
// the job is finished.
func (h *Hub) publish(jobID string, data []byte, final bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	j, ok := h.jobs[jobID]
	if !ok {
		return true
	}
	j.events = append(j.events, data)
	for sub := range j.subs {
		select {
		case sub.ch <- data:
		default:
			logger.Warn("[Hub] Subscriber too slow, disconnecting", "job_id", jobID)
			delete(j.subs, sub)
			sub.err = ErrSlowSubscriber
			close(sub.ch)
		}
	}
	return final
}

func (h *Hub) finish(jobID string) {
	h.mu.Lock()
	j, ok := h.jobs[jobID]
	if !ok || j.final {
		h.mu.Unlock()
		return
	}
	j.final = true
	j.cancel()
	for sub := range j.subs {
		close(sub.ch)
	}
	j.subs = nil
	h.mu.Unlock()

	time.AfterFunc(h.retention, func() { h.Forget(jobID) })
}

// Subscription carries the live events of one job to one client.
type Subscription struct {
	// C is closed once no more events will be delivered. Err tells why.
	C <-chan []byte

	ch  chan []byte
	err error
	hub *Hub
	job *job
}

// Err tells why C was closed: nil after the final event or Detach,
// ErrSlowSubscriber when events were dropped.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

// Detach stops the delivery of events. It must be called when the caller
// stops reading and may be called more than once.
func (s *Subscription) Detach() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.job.subs[s]; ok {
		delete(s.job.subs, s)
		close(s.ch)
	}
}

// Attach returns the events of jobID seen so far and a subscription carrying
// the following ones.
func (h *Hub) Attach(jobID string) (replay [][]byte, sub *Subscription, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	j, ok := h.jobs[jobID]
	if !ok {
		return nil, nil, ErrUnknownJob
	}

	replay = make([][]byte, len(j.events))
	copy(replay, j.events)

	ch := make(chan []byte, subscriberBuffer)
	sub = &Subscription{C: ch, ch: ch, hub: h, job: j}
	if j.final {
		close(ch)
		return replay, sub, nil
	}
	j.subs[sub] = struct{}{}
	return replay, sub, nil
}

// Forget stops tracking jobID.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	j, ok := h.jobs[jobID]
	delete(h.jobs, jobID)
	h.mu.Unlock()

	if ok {
		j.cancel()
	}
}

// Close stops tracking every job.
func (h *Hub) Close() {
	h.mu.Lock()
	jobs := h.jobs
	h.jobs = make(map[string]*job)
	h.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}
}
