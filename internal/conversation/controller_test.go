// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/aide-tui/internal/model"
	"github.com/jeranaias/aide-tui/internal/stream"
	"github.com/jeranaias/aide-tui/internal/transport"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// chunkReader returns one chunk per Read call, then EOF. It simulates a
// network stream that delivers data in arbitrary pieces.
type chunkReader struct {
	chunks []string
	i      int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeSender records the request and serves a canned stream.
type fakeSender struct {
	mu          sync.Mutex
	gotMessage  string
	gotHistory  []model.ChatHistoryEntry
	gotFiles    []transport.FileAttachment
	calls       int
	respChunks  []string
	err         error
	body        io.ReadCloser // overrides respChunks when set
}

func (s *fakeSender) SendWithFiles(ctx context.Context, message string, history []model.ChatHistoryEntry, files []transport.FileAttachment) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotMessage = message
	s.gotHistory = history
	s.gotFiles = files
	if s.err != nil {
		return nil, s.err
	}
	if s.body != nil {
		return s.body, nil
	}
	return &chunkReader{chunks: s.respChunks}, nil
}

func lastMessage(t *testing.T, c *Controller) *model.Message {
	t.Helper()
	msgs := c.Messages()
	if len(msgs) == 0 {
		t.Fatal("message list is empty")
	}
	return msgs[len(msgs)-1]
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestController_SubmitHappyPath(t *testing.T) {
	sender := &fakeSender{respChunks: []string{"Hi", " there"}}
	c := NewController(sender)

	// Record the placeholder's interim text at every visible update.
	var mu sync.Mutex
	var seen []string
	c.SetOnUpdate(func() {
		mu.Lock()
		defer mu.Unlock()
		msgs := c.Messages()
		if len(msgs) == 2 && !msgs[1].IsUser() && msgs[1].Text != "" {
			if len(seen) == 0 || seen[len(seen)-1] != msgs[1].Text {
				seen = append(seen, msgs[1].Text)
			}
		}
	})

	if err := c.Submit(context.Background(), "Hello", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if sender.gotMessage != "Hello" {
		t.Errorf("sent message = %q", sender.gotMessage)
	}
	if len(sender.gotHistory) != 0 {
		t.Errorf("sent history = %v, want empty on first turn", sender.gotHistory)
	}

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want user + assistant", len(msgs))
	}
	if !msgs[0].IsUser() || msgs[0].Text != "Hello" {
		t.Errorf("message 0 = %+v", msgs[0])
	}
	if msgs[1].Text != "Hi there" || msgs[1].IsLoading {
		t.Errorf("message 1 = %+v", msgs[1])
	}

	mu.Lock()
	wantSeen := []string{"Hi", "Hi there"}
	if len(seen) != len(wantSeen) {
		t.Errorf("interim text sequence = %v, want %v", seen, wantSeen)
	} else {
		for i := range wantSeen {
			if seen[i] != wantSeen[i] {
				t.Errorf("interim text %d = %q, want %q", i, seen[i], wantSeen[i])
			}
		}
	}
	mu.Unlock()

	history := c.History()
	if len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
	if history[0].Role != model.RoleUser || history[0].Content != "Hello" {
		t.Errorf("history 0 = %+v", history[0])
	}
	if history[1].Role != model.RoleAssistant || history[1].Content != "Hi there" {
		t.Errorf("history 1 = %+v", history[1])
	}

	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle after settlement", c.State())
	}
}

func TestController_SubmitWhileBusyIsNoOp(t *testing.T) {
	pr, pw := io.Pipe()
	sender := &fakeSender{body: pr}
	c := NewController(sender)

	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), "first", nil)
	}()

	// Wait for the first turn to reach the network.
	deadline := time.After(2 * time.Second)
	for sender.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first submit never started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := c.Submit(context.Background(), "second", nil); err != nil {
		t.Errorf("busy submit should be a silent no-op, got %v", err)
	}
	if got := len(c.Messages()); got != 2 {
		t.Errorf("messages = %d, busy submit must not append", got)
	}
	if got := len(c.History()); got != 1 {
		t.Errorf("history = %d, busy submit must not log", got)
	}
	if sender.callCount() != 1 {
		t.Errorf("sender calls = %d, want 1", sender.callCount())
	}

	io.WriteString(pw, "done")
	pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
}

func TestController_SubmitRejectsTooManyFiles(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender)

	files := make([]transport.FileAttachment, transport.MaxFiles+1)
	for i := range files {
		files[i] = transport.FileAttachment{Name: "f.txt", Data: []byte("x")}
	}

	err := c.Submit(context.Background(), "hi", files)
	if !transport.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if len(c.Messages()) != 0 {
		t.Error("rejected submit must not append messages")
	}
	if len(c.History()) != 0 {
		t.Error("rejected submit must not log history")
	}
	if sender.calls != 0 {
		t.Error("rejected submit must not reach the sender")
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestController_SubmitRejectsEmptyInput(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "   ", nil); err != ErrEmptyInput {
		t.Fatalf("error = %v, want ErrEmptyInput", err)
	}
	if len(c.Messages()) != 0 || len(c.History()) != 0 || sender.callCount() != 0 {
		t.Error("empty submit must mutate nothing")
	}
}

func TestController_SendErrorSettlesWithErrorText(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	c := NewController(sender)

	err := c.Submit(context.Background(), "Hello", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	msg := lastMessage(t, c)
	if msg.Text != ErrorText {
		t.Errorf("placeholder text = %q, want %q", msg.Text, ErrorText)
	}
	if msg.IsLoading {
		t.Error("failed placeholder must not stay loading")
	}

	// Failed turns still log the user entry, and only it.
	history := c.History()
	if len(history) != 1 || history[0].Role != model.RoleUser {
		t.Errorf("history = %+v, want just the user turn", history)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle after cleanup", c.State())
	}
}

func TestController_CitationStream(t *testing.T) {
	sender := &fakeSender{respChunks: []string{
		"Answer.",
		"\n" + stream.CitationSentinel + "\n",
		"Answer [1].",
	}}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "cite this", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msg := lastMessage(t, c)
	if msg.CitedText != "Answer [1]." {
		t.Errorf("CitedText = %q", msg.CitedText)
	}
	if !msg.IsCited {
		t.Error("IsCited should be true")
	}
	if msg.Text != "Answer [1]." {
		t.Errorf("Text = %q, cited variant should be displayed", msg.Text)
	}
}

func TestController_FinalResultOverridesChunks(t *testing.T) {
	final := `{"raw_response": "Full answer.", "cited_response": "Full answer [1].", "citations": true}`
	sender := &fakeSender{respChunks: []string{"partial text\n", final + "\n"}}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "q", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msg := lastMessage(t, c)
	if msg.RawText != "Full answer." {
		t.Errorf("RawText = %q", msg.RawText)
	}
	if msg.Text != "Full answer [1]." {
		t.Errorf("Text = %q, want cited response", msg.Text)
	}
	if h := c.History(); h[len(h)-1].Content != "Full answer [1]." {
		t.Errorf("history content = %q", h[len(h)-1].Content)
	}
}

func TestController_FinalResultWithoutCitations(t *testing.T) {
	final := `{"raw_response": "Plain.", "cited_response": null, "citations": false}`
	sender := &fakeSender{respChunks: []string{final + "\n"}}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "q", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msg := lastMessage(t, c)
	if msg.Text != "Plain." || msg.CitedText != "" || msg.IsCited {
		t.Errorf("message = %+v, want raw text only", msg)
	}
}

func TestController_OneLoadingMessageAtATime(t *testing.T) {
	pr, pw := io.Pipe()
	sender := &fakeSender{body: pr}
	c := NewController(sender)

	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), "q", nil)
	}()

	deadline := time.After(2 * time.Second)
	for !c.Busy() {
		select {
		case <-deadline:
			t.Fatal("submit never started")
		case <-time.After(time.Millisecond):
		}
	}

	loading := 0
	for _, m := range c.Messages() {
		if m.IsLoading {
			loading++
		}
	}
	if loading != 1 {
		t.Errorf("loading messages = %d, want exactly 1 while in flight", loading)
	}

	pw.Close()
	<-done

	for _, m := range c.Messages() {
		if m.IsLoading {
			t.Error("no message should be loading after settlement")
		}
	}
}

// =============================================================================
// HISTORY REPLAY TESTS
// =============================================================================

func TestController_SecondTurnReplaysHistory(t *testing.T) {
	sender := &fakeSender{respChunks: []string{"first answer"}}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "one", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	sender.respChunks = []string{"second answer"}
	sender.mu.Lock()
	sender.body = nil
	sender.mu.Unlock()
	if err := c.Submit(context.Background(), "two", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// The second request carries the first completed turn as context.
	if len(sender.gotHistory) != 2 {
		t.Fatalf("replayed history = %d entries, want 2", len(sender.gotHistory))
	}
	if sender.gotHistory[1].Content != "first answer" {
		t.Errorf("replayed history = %+v", sender.gotHistory)
	}
	if len(c.History()) != 4 {
		t.Errorf("history = %d entries, want 4 after two turns", len(c.History()))
	}
}

// =============================================================================
// MISC TESTS
// =============================================================================

func TestController_Reset(t *testing.T) {
	sender := &fakeSender{respChunks: []string{"answer"}}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "q", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	c.Reset()

	if len(c.Messages()) != 0 || len(c.History()) != 0 {
		t.Error("reset must clear messages and history")
	}
}

func TestController_ToggleLastCitations(t *testing.T) {
	final := `{"raw_response": "Raw.", "cited_response": "Cited [1].", "citations": true}`
	sender := &fakeSender{respChunks: []string{final + "\n"}}
	c := NewController(sender)

	if err := c.Submit(context.Background(), "q", nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if !c.ToggleLastCitations() {
		t.Fatal("toggle should succeed")
	}
	if got := lastMessage(t, c).DisplayText(); got != "Raw." {
		t.Errorf("DisplayText = %q, want raw after toggle", got)
	}

	c.Reset()
	if c.ToggleLastCitations() {
		t.Error("toggle on empty conversation should fail")
	}
}
