package app

import (
	"context"
	"log"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// Recorder is the persistence gateway. The engine hands it immutable facts
// for durability and analytics; it never reads anything back through it.
type Recorder interface {
	SessionCreated(ctx context.Context, code string, quiz domain.Quiz) error
	ParticipantJoined(ctx context.Context, code, participantID, name string) error
	AnswerSubmitted(ctx context.Context, rec domain.AnswerRecord) error
	SessionFinished(ctx context.Context, code string, standings []domain.Standing) error
	SessionClosed(ctx context.Context, code, reason string) error
}

// NopRecorder discards all facts. Used when no storage is configured.
type NopRecorder struct{}

func (NopRecorder) SessionCreated(context.Context, string, domain.Quiz) error        { return nil }
func (NopRecorder) ParticipantJoined(context.Context, string, string, string) error  { return nil }
func (NopRecorder) AnswerSubmitted(context.Context, domain.AnswerRecord) error       { return nil }
func (NopRecorder) SessionFinished(context.Context, string, []domain.Standing) error { return nil }
func (NopRecorder) SessionClosed(context.Context, string, string) error              { return nil }

// AsyncRecorder wraps a Recorder with a bounded write-behind queue so that
// storage latency or failure can never stall a phase transition. A full
// queue drops the fact with a log line; the live quiz flow always wins.
type AsyncRecorder struct {
	inner   Recorder
	jobs    chan func(context.Context)
	done    chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewAsyncRecorder(inner Recorder, queueSize int) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &AsyncRecorder{
		inner:   inner,
		jobs:    make(chan func(context.Context), queueSize),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	go r.run()
	return r
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for job := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		job(ctx)
		cancel()
	}
}

// Close drains the queue and stops the worker. Facts enqueued after Close
// are dropped.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()
	<-r.done
}

func (r *AsyncRecorder) enqueue(what string, job func(context.Context) error) {
	wrapped := func(ctx context.Context) {
		if err := job(ctx); err != nil {
			log.Printf("recorder: %s failed: %v", what, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		log.Printf("recorder: closed, dropping %s", what)
		return
	}
	select {
	case r.jobs <- wrapped:
	default:
		log.Printf("recorder: queue full, dropping %s", what)
	}
}

func (r *AsyncRecorder) SessionCreated(_ context.Context, code string, quiz domain.Quiz) error {
	r.enqueue("session-created", func(ctx context.Context) error {
		return r.inner.SessionCreated(ctx, code, quiz)
	})
	return nil
}

func (r *AsyncRecorder) ParticipantJoined(_ context.Context, code, participantID, name string) error {
	r.enqueue("participant-joined", func(ctx context.Context) error {
		return r.inner.ParticipantJoined(ctx, code, participantID, name)
	})
	return nil
}

func (r *AsyncRecorder) AnswerSubmitted(_ context.Context, rec domain.AnswerRecord) error {
	r.enqueue("answer", func(ctx context.Context) error {
		return r.inner.AnswerSubmitted(ctx, rec)
	})
	return nil
}

func (r *AsyncRecorder) SessionFinished(_ context.Context, code string, standings []domain.Standing) error {
	r.enqueue("session-finished", func(ctx context.Context) error {
		return r.inner.SessionFinished(ctx, code, standings)
	})
	return nil
}

func (r *AsyncRecorder) SessionClosed(_ context.Context, code, reason string) error {
	r.enqueue("session-closed", func(ctx context.Context) error {
		return r.inner.SessionClosed(ctx, code, reason)
	})
	return nil
}
