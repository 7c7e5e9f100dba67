package app

import (
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// fakeClock drives session deadlines deterministically. Advance moves time
// forward and fires any timers that come due, in arming order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	fireAt  time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, fireAt: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.fireAt.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// fakeConn records every event it is sent.
type fakeConn struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (c *fakeConn) Send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) ofType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) lastOfType(t EventType) (Event, bool) {
	evs := c.ofType(t)
	if len(evs) == 0 {
		return Event{}, false
	}
	return evs[len(evs)-1], true
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Title:            "Capitals",
		TotalScoreBudget: 100,
		Questions: []domain.Question{
			{
				ID:               "q1",
				Text:             "Capital of France?",
				Options:          []string{"Lyon", "Paris", "Nice"},
				CorrectOptions:   []int{1},
				TimeLimitSeconds: 30,
			},
			{
				ID:               "q2",
				Text:             "Capital of Japan?",
				Options:          []string{"Osaka", "Kyoto", "Tokyo"},
				CorrectOptions:   []int{2},
				TimeLimitSeconds: 30,
			},
		},
	}
}

func newTestSession(quiz domain.Quiz) (*Session, *fakeClock, *Router) {
	clk := newFakeClock()
	router := NewRouter()
	return newSession("DEMO42", quiz, router, NopRecorder{}, 50, clk), clk, router
}
