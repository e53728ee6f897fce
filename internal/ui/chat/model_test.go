// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/model"
	"github.com/jeranaias/aide-tui/internal/transport"
	"github.com/jeranaias/aide-tui/internal/ui/styles"
)

// stubSender returns a canned stream body for every request.
type stubSender struct {
	body string
}

func (s *stubSender) SendWithFiles(_ context.Context, _ string, _ []model.ChatHistoryEntry, _ []transport.FileAttachment) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func newTestModel() Model {
	ctrl := conversation.NewController(&stubSender{body: "hello there\n"})
	m := New(styles.NewTheme("dark"), ctrl, nil, 0)
	resized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return resized.(Model)
}

func TestHandleResize_SetsViewportHeight(t *testing.T) {
	m := newTestModel()
	if !m.ready {
		t.Fatal("model not ready after resize")
	}
	want := 24 - headerHeight - inputAreaHeight - statusBarHeight
	if m.viewport.Height != want {
		t.Errorf("viewport height = %d, want %d", m.viewport.Height, want)
	}
}

func TestRenderMessages_EmptyShowsHint(t *testing.T) {
	m := newTestModel()
	if !strings.Contains(m.renderMessages(), "Ask me anything") {
		t.Error("empty transcript should show the welcome hint")
	}
}

func TestRenderMessage_Roles(t *testing.T) {
	m := newTestModel()

	user := model.NewUserMessage("what is on my calendar?")
	if out := m.renderMessage(user); !strings.Contains(out, "You") ||
		!strings.Contains(out, "what is on my calendar?") {
		t.Errorf("user message rendering lost content: %q", out)
	}

	assistant := model.NewPlaceholderMessage()
	assistant.Settle("nothing today", "", false)
	if out := m.renderMessage(assistant); !strings.Contains(out, "Assistant") ||
		!strings.Contains(out, "nothing today") {
		t.Errorf("assistant message rendering lost content: %q", out)
	}
}

func TestRenderMessage_LoadingShowsThinking(t *testing.T) {
	m := newTestModel()
	placeholder := model.NewPlaceholderMessage()
	if out := m.renderMessage(placeholder); !strings.Contains(out, "Thinking") {
		t.Errorf("empty placeholder should show thinking indicator: %q", out)
	}

	placeholder.SetInterimText("partial rep")
	if out := m.renderMessage(placeholder); !strings.Contains(out, "partial rep") {
		t.Errorf("streaming placeholder should show interim text: %q", out)
	}
}

func TestRenderMessage_CitationBadge(t *testing.T) {
	m := newTestModel()
	msg := model.NewPlaceholderMessage()
	msg.Settle("plain answer", "cited answer [1]", true)

	if out := m.renderMessage(msg); !strings.Contains(out, "cited answer [1]") {
		t.Errorf("cited variant should display by default: %q", out)
	}
	msg.ToggleCitations()
	if out := m.renderMessage(msg); !strings.Contains(out, "plain answer") {
		t.Errorf("toggle should switch to the raw variant: %q", out)
	}
}

func TestIsErrorMessage(t *testing.T) {
	failed := model.NewPlaceholderMessage()
	failed.Fail(conversation.ErrorText)
	if !isErrorMessage(failed) {
		t.Error("failed placeholder should be detected as an error message")
	}

	ok := model.NewPlaceholderMessage()
	ok.Settle(conversation.ErrorText, "", false)
	if isErrorMessage(ok) {
		t.Error("a real reply that happens to match the error text has a raw response")
	}
}

func TestHandleTurnFinished_EmptyInput(t *testing.T) {
	m := newTestModel()
	m = m.handleTurnFinished(TurnFinishedMsg{Err: conversation.ErrEmptyInput})
	if m.statusMsg != "Type a message first." {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
}

func TestHandleTurnFinished_ValidationError(t *testing.T) {
	m := newTestModel()
	err := &transport.ValidationError{Oversized: []string{"big.bin"}}
	m = m.handleTurnFinished(TurnFinishedMsg{Err: err})
	if !strings.Contains(m.statusMsg, "big.bin") {
		t.Errorf("statusMsg should name the offending file: %q", m.statusMsg)
	}
}

func TestVoiceKeyWithoutAdapter(t *testing.T) {
	m := newTestModel()
	updated, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd != nil {
		t.Error("no command expected when voice is not configured")
	}
	if got := updated.(Model).statusMsg; !strings.Contains(got, "not configured") {
		t.Errorf("statusMsg = %q", got)
	}
}

func TestView_ContainsSections(t *testing.T) {
	m := newTestModel()
	out := m.View()
	if !strings.Contains(out, "aide") {
		t.Error("view should contain the header title")
	}
	if !strings.Contains(out, "C-c quit") {
		t.Error("view should contain status bar hints")
	}
}
