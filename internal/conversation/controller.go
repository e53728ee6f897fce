// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/aide-tui/internal/model"
	"github.com/jeranaias/aide-tui/internal/stream"
	"github.com/jeranaias/aide-tui/internal/transport"
)

// =============================================================================
// STATES
// =============================================================================

// State is the turn lifecycle state.
type State int

const (
	// StateIdle means no request is in flight; submit is accepted.
	StateIdle State = iota

	// StateSending means the request is being issued.
	StateSending

	// StateStreaming means the response stream is being consumed.
	StateStreaming

	// StateSettled is the transient post-stream state before cleanup.
	StateSettled
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// ErrorText is the fixed user-visible text shown when a turn fails. Requests
// are not retried automatically.
const ErrorText = "Sorry, an error occurred."

// ErrEmptyInput rejects a submission with no text. Nothing is mutated.
var ErrEmptyInput = errors.New("empty submission")

// =============================================================================
// CONTROLLER
// =============================================================================

// Sender issues one chat request and returns the response stream.
type Sender interface {
	SendWithFiles(ctx context.Context, message string, history []model.ChatHistoryEntry, files []transport.FileAttachment) (io.ReadCloser, error)
}

// Controller is the conversation state machine. All exported methods are
// safe for concurrent use; Submit blocks until the turn settles.
type Controller struct {
	mu       sync.Mutex
	state    State
	messages []*model.Message
	history  *model.History
	sender   Sender
	logger   *log.Logger
	onUpdate func()
}

// NewController creates a controller in the idle state.
func NewController(sender Sender) *Controller {
	return &Controller{
		state:   StateIdle,
		history: model.NewHistory(),
		sender:  sender,
		logger:  log.Default(),
	}
}

// SetOnUpdate registers a callback invoked after every visible change to the
// message list. The callback runs without the controller lock held.
func (c *Controller) SetOnUpdate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// SetLogger replaces the warning logger.
func (c *Controller) SetLogger(l *log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a turn is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateIdle
}

// Messages returns the visible message list. The slice is a copy; the
// messages themselves are shared and mutated only by the controller.
func (c *Controller) Messages() []*model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// History returns a copy of the replayed turn log.
func (c *Controller) History() []model.ChatHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Entries()
}

// Reset clears the conversation. No-op while a turn is in flight.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.logger.Printf("[warn] conversation: reset ignored while %s", c.state)
		return
	}
	c.messages = nil
	c.history.Reset()
	c.mu.Unlock()
	c.notify()
}

// ToggleLastCitations flips the citation display on the most recent
// assistant message. Returns false when there is nothing to toggle.
func (c *Controller) ToggleLastCitations() bool {
	c.mu.Lock()
	var toggled bool
	for i := len(c.messages) - 1; i >= 0; i-- {
		if !c.messages[i].IsUser() {
			toggled = c.messages[i].ToggleCitations()
			break
		}
	}
	c.mu.Unlock()
	if toggled {
		c.notify()
	}
	return toggled
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit runs one full turn: append the user message and placeholder, issue
// the request, fold the stream into the placeholder, settle. Returns nil on
// a successful turn. A call while a turn is in flight does nothing.
//
// Attachment constraints are checked before anything becomes visible, so a
// rejected submit leaves the message list and history untouched.
func (c *Controller) Submit(ctx context.Context, input string, files []transport.FileAttachment) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}
	if err := transport.ValidateFiles(files); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		c.logger.Printf("[warn] conversation: submit ignored while %s", state)
		return nil
	}
	c.state = StateSending

	// The user message and the loading placeholder appear together, and the
	// user turn is logged immediately - a failed request still records it.
	placeholder := model.NewPlaceholderMessage()
	c.messages = append(c.messages, model.NewUserMessage(input), placeholder)
	history := c.history.Entries()
	c.history.AppendUser(input)
	c.mu.Unlock()
	c.notify()

	err := c.run(ctx, input, history, files, placeholder)

	// Cleanup is unconditional: the guard is released whatever happened.
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
	return err
}

// run executes the Sending and Streaming phases and settles the placeholder.
func (c *Controller) run(ctx context.Context, input string, history []model.ChatHistoryEntry, files []transport.FileAttachment, placeholder *model.Message) error {
	body, err := c.sender.SendWithFiles(ctx, input, history, files)
	if err != nil {
		c.fail(placeholder, err)
		return err
	}
	defer body.Close()

	c.mu.Lock()
	c.state = StateStreaming
	c.mu.Unlock()

	acc := stream.NewReplyAccumulator()
	consumeErr := stream.Consume(ctx, body, func(f stream.Frame) {
		c.mu.Lock()
		acc.Apply(f)
		if f.Kind == stream.FrameFinal {
			placeholder.Settle(f.Final.RawResponse, f.Final.CitedResponse, f.Final.HasCitations)
		} else {
			placeholder.SetInterimText(acc.DisplayText())
		}
		c.mu.Unlock()
		c.notify()
	})
	if consumeErr != nil {
		// Frames already applied stay applied; only the settlement changes.
		c.fail(placeholder, consumeErr)
		return consumeErr
	}

	c.mu.Lock()
	c.state = StateSettled
	if !acc.HasFinal() {
		if cited, ok := acc.Cited(); ok {
			placeholder.Settle(acc.Raw(), cited, true)
		} else {
			placeholder.SettleFromAccumulated(acc.Raw())
		}
	}
	c.history.AppendAssistant(placeholder.Text)
	c.mu.Unlock()
	c.notify()
	return nil
}

// fail settles the placeholder with the fixed error text. The assistant turn
// is not logged to history.
func (c *Controller) fail(placeholder *model.Message, err error) {
	c.logger.Printf("[warn] conversation: turn failed: %v", err)
	c.mu.Lock()
	c.state = StateSettled
	placeholder.Fail(ErrorText)
	c.mu.Unlock()
	c.notify()
}
