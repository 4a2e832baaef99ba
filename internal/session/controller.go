package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/epic-scan/internal/capture"
)

// DefaultInterval is the periodic capture interval
const DefaultInterval = 3500 * time.Millisecond

// ErrStopped is returned by calls made after Run has returned
var ErrStopped = errors.New("scan controller stopped")

// Extractor finds an identifier in an image
type Extractor interface {
	Extract(ctx context.Context, img capture.Image) (string, bool)
}

type request struct {
	event Event
	reply chan outcome
}

type outcome struct {
	before Session
	after  Session
}

// Controller owns the session and runs its transitions on a single goroutine.
// Capture and extraction run on worker goroutines and report back as events.
type Controller struct {
	source    capture.Source
	extractor Extractor
	notifier  Notifier
	clock     Clock
	interval  time.Duration

	idGenerator IDGenerator

	requests chan request
	done     chan struct{}

	mu        sync.RWMutex
	state     Session
	observers []func(Session)

	// owned by the Run goroutine
	ticker  Ticker
	workers sync.WaitGroup
}

// NewController creates a new Controller with the real clock and UUID session IDs
func NewController(source capture.Source, extractor Extractor, notifier Notifier, interval time.Duration) *Controller {
	return NewControllerWithDeps(source, extractor, notifier, interval, defaultClock{}, uuidGenerator{})
}

// NewControllerWithDeps creates a new Controller with custom dependencies for testing
func NewControllerWithDeps(source capture.Source, extractor Extractor, notifier Notifier, interval time.Duration, clock Clock, idGen IDGenerator) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return &Controller{
		source:      source,
		extractor:   extractor,
		notifier:    notifier,
		clock:       clock,
		interval:    interval,
		idGenerator: idGen,
		requests:    make(chan request),
		done:        make(chan struct{}),
		state:       New(idGen.Generate()),
	}
}

// Observe registers fn to be called with every new session state.
// It must be called before Run.
func (c *Controller) Observe(fn func(Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot returns the current session state
func (c *Controller) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run processes events and timer ticks until ctx is cancelled.
// In-flight workers are waited for before it returns.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	slog.Info("Scan controller started", "session", c.Snapshot().ID, "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.stopTicker()
			c.workers.Wait()
			slog.Info("Scan controller stopped")
			return ctx.Err()
		case <-c.tickC():
			c.apply(ctx, Tick{})
		case req := <-c.requests:
			out := c.apply(ctx, req.event)
			if req.reply != nil {
				req.reply <- out
			}
		}
	}
}

// Grant enters scanning once the camera is usable
func (c *Controller) Grant(ctx context.Context) error {
	_, err := c.submit(ctx, Granted{})
	return err
}

// Deny reports an unusable camera; the session stays idle
func (c *Controller) Deny(ctx context.Context) error {
	_, err := c.submit(ctx, Denied{})
	return err
}

// Pick submits a user-chosen image. It reports false when the gate refused
// the attempt because another one is in flight or an identifier was already found.
func (c *Controller) Pick(ctx context.Context, img capture.Image) (bool, error) {
	out, err := c.submit(ctx, Picked{Image: img})
	if err != nil {
		return false, err
	}
	return out.after.Attempt != out.before.Attempt, nil
}

// Reset starts a new session and resumes periodic scanning
func (c *Controller) Reset(ctx context.Context) (Session, error) {
	out, err := c.submit(ctx, Reset{ID: c.idGenerator.Generate()})
	if err != nil {
		return Session{}, err
	}
	return out.after, nil
}

func (c *Controller) submit(ctx context.Context, ev Event) (outcome, error) {
	reply := make(chan outcome, 1)
	select {
	case c.requests <- request{event: ev, reply: reply}:
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	case <-c.done:
		return outcome{}, ErrStopped
	}

	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

func (c *Controller) apply(ctx context.Context, ev Event) outcome {
	c.mu.Lock()
	before := c.state
	after, effects := Transition(before, ev)
	c.state = after
	observers := c.observers
	c.mu.Unlock()

	if after != before {
		if after.Phase != before.Phase {
			slog.Info("Session phase changed",
				"session", after.ID,
				"from", before.Phase.String(),
				"to", after.Phase.String(),
				"attempt", after.Attempt,
				"trigger", after.Trigger.String(),
			)
		}
		if after.Phase == PhaseFound && before.Phase != PhaseFound {
			slog.Info("Identifier found", "session", after.ID, "identifier", after.LastResult, "trigger", after.Trigger.String())
		}
		for _, fn := range observers {
			fn(after)
		}
	}

	for _, effect := range effects {
		c.execute(ctx, effect)
	}

	return outcome{before: before, after: after}
}

func (c *Controller) execute(ctx context.Context, effect Effect) {
	switch e := effect.(type) {
	case StartTimer:
		if c.ticker == nil {
			c.ticker = c.clock.NewTicker(c.interval)
		}
	case StopTimer:
		c.stopTicker()
	case Capture:
		c.spawn(ctx, func() Event {
			return c.captureAndExtract(ctx, e.Attempt)
		})
	case Extract:
		c.spawn(ctx, func() Event {
			return Extracted{Attempt: e.Attempt, Identifier: c.extract(ctx, e.Attempt, e.Image)}
		})
	case Notify:
		c.notifier.Notify(e.Message)
	}
}

func (c *Controller) captureAndExtract(ctx context.Context, attempt uint64) Event {
	if c.source == nil {
		return CaptureFailed{Attempt: attempt, Err: capture.ErrUnavailable}
	}

	img, err := c.capture(ctx, attempt)
	if err != nil {
		slog.Debug("Periodic capture failed", "attempt", attempt, "error", err)
		return CaptureFailed{Attempt: attempt, Err: err}
	}

	return Extracted{Attempt: attempt, Identifier: c.extract(ctx, attempt, img)}
}

// capture asks the source for a low fidelity frame. A panicking source
// (the camera driver is native code) fails only this attempt.
func (c *Controller) capture(ctx context.Context, attempt uint64) (img capture.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Frame source panicked", "attempt", attempt, "panic", fmt.Sprint(r))
			err = &capture.CaptureError{Source: "source", Err: fmt.Errorf("%w: panic: %v", capture.ErrUnavailable, r)}
		}
	}()

	return c.source.Capture(ctx, capture.FidelityLow)
}

// extract returns the identifier in img, or "" when there is none or the
// extractor panicked
func (c *Controller) extract(ctx context.Context, attempt uint64, img capture.Image) (id string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Extractor panicked", "attempt", attempt, "origin", img.Origin, "panic", fmt.Sprint(r))
			id = ""
		}
	}()

	id, _ = c.extractor.Extract(ctx, img)
	return id
}

// spawn runs work on a worker goroutine and feeds its event back into Run
func (c *Controller) spawn(ctx context.Context, work func() Event) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		ev := work()
		select {
		case c.requests <- request{event: ev}:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) tickC() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.C()
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}
