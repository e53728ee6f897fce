// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"log"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// =============================================================================
// RECOGNIZER INTERFACE
// =============================================================================

// EventKind classifies recognizer events.
type EventKind int

const (
	// EventInterim is a provisional transcript of in-progress speech.
	EventInterim EventKind = iota

	// EventFinal is the completed transcript of one utterance segment.
	EventFinal

	// EventEnd signals the recognition session terminated, expectedly or not.
	EventEnd
)

// Event is one recognizer notification. Text is set for interim and final
// events.
type Event struct {
	Kind EventKind
	Text string
}

// Recognizer is a continuous, interim-capable speech-to-text session source.
// Events must be delivered on the Events channel in occurrence order; the
// channel is closed when the recognizer is torn down for good.
type Recognizer interface {
	Start() error
	Stop() error
	Events() <-chan Event
}

// =============================================================================
// ADAPTER
// =============================================================================

// SubmitFunc receives each final transcript.
type SubmitFunc func(text string)

// DefaultRestartDelay is the pause before reviving a dead session.
const DefaultRestartDelay = 300 * time.Millisecond

// Adapter supervises a Recognizer and routes its transcripts.
type Adapter struct {
	mu sync.Mutex

	rec    Recognizer
	submit SubmitFunc

	// desired is what the user asked for; active is what the recognizer is
	// actually doing. They diverge when the session dies unexpectedly.
	desired bool
	active  bool

	interim        string
	onInterim      func(text string)
	restartDelay   time.Duration
	restartPending bool
	restartLimit   *rate.Limiter
	logger         *log.Logger
	done           chan struct{}
}

// NewAdapter creates an adapter and begins consuming recognizer events.
// Call Close when finished.
func NewAdapter(rec Recognizer, submit SubmitFunc) *Adapter {
	a := &Adapter{
		rec:          rec,
		submit:       submit,
		restartDelay: DefaultRestartDelay,
		// One restart per second at most, regardless of how fast the
		// underlying session keeps dying.
		restartLimit: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:       log.Default(),
		done:         make(chan struct{}),
	}
	go a.loop()
	return a
}

// SetOnInterim registers a display callback for provisional transcripts.
func (a *Adapter) SetOnInterim(fn func(text string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onInterim = fn
}

// SetRestartDelay overrides the auto-restart pause.
func (a *Adapter) SetRestartDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restartDelay = d
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start turns listening on. A call while already listening is a no-op.
func (a *Adapter) Start() error {
	a.mu.Lock()
	if a.desired {
		a.mu.Unlock()
		return nil
	}
	a.desired = true
	a.mu.Unlock()

	if err := a.rec.Start(); err != nil {
		a.mu.Lock()
		a.desired = false
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	a.active = true
	a.mu.Unlock()
	return nil
}

// Stop turns listening off and ends any running session.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	a.desired = false
	wasActive := a.active
	a.active = false
	a.interim = ""
	a.mu.Unlock()

	if wasActive {
		return a.rec.Stop()
	}
	return nil
}

// Listening reports whether the user has listening turned on.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.desired
}

// Interim returns the current provisional transcript.
func (a *Adapter) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interim
}

// Close stops listening and the event loop.
func (a *Adapter) Close() error {
	err := a.Stop()
	close(a.done)
	return err
}

// =============================================================================
// EVENT LOOP
// =============================================================================

func (a *Adapter) loop() {
	for {
		select {
		case <-a.done:
			return
		case ev, ok := <-a.rec.Events():
			if !ok {
				return
			}
			a.handle(ev)
		}
	}
}

func (a *Adapter) handle(ev Event) {
	switch ev.Kind {
	case EventInterim:
		text := norm.NFC.String(ev.Text)
		a.mu.Lock()
		a.interim = text
		fn := a.onInterim
		a.mu.Unlock()
		if fn != nil {
			fn(text)
		}

	case EventFinal:
		text := norm.NFC.String(ev.Text)
		a.mu.Lock()
		a.interim = ""
		fn := a.onInterim
		a.mu.Unlock()
		if fn != nil {
			fn("")
		}
		if text != "" {
			a.submit(text)
		}

	case EventEnd:
		a.mu.Lock()
		a.active = false
		shouldRestart := a.desired && !a.restartPending
		if shouldRestart {
			a.restartPending = true
		}
		delay := a.restartDelay
		a.mu.Unlock()

		if shouldRestart {
			time.AfterFunc(delay, a.restart)
		}
	}
}

// restart revives the session if listening is still wanted. At most one
// restart is pending at a time; the rate limiter spaces out tight
// die/restart cycles by deferring too-soon attempts, never abandoning them —
// while listening is wanted, a dead session always has a restart scheduled.
func (a *Adapter) restart() {
	a.mu.Lock()
	if !a.desired || a.active {
		a.restartPending = false
		a.mu.Unlock()
		return
	}
	if res := a.restartLimit.Reserve(); res.Delay() > 0 {
		// Too soon. Put the token back and come around again when the
		// limiter would have allowed it; restartPending stays set.
		wait := res.Delay()
		res.Cancel()
		a.mu.Unlock()
		a.logger.Printf("[warn] voice: restart rate limited, retrying in %v", wait.Round(time.Millisecond))
		time.AfterFunc(wait, a.restart)
		return
	}
	a.restartPending = false
	a.mu.Unlock()

	if err := a.rec.Start(); err != nil {
		a.logger.Printf("[warn] voice: session restart failed: %v", err)
		return
	}

	a.mu.Lock()
	a.active = true
	a.mu.Unlock()
}
