// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// This file defines the Bubble Tea message types and command creators used
// by the chat view. The conversation controller runs turns on its own
// goroutine; its update callback pushes ConversationUpdatedMsg into the
// program so the viewport re-renders as stream frames land.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/voice"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// ConversationUpdatedMsg signals that the visible message list changed.
// Sent from the controller's update callback via Program.Send.
type ConversationUpdatedMsg struct{}

// TurnFinishedMsg reports the outcome of one submitted turn. Err carries
// pre-flight rejections (empty input, attachment violations); stream and
// transport failures are already reflected in the message list.
type TurnFinishedMsg struct {
	Err error
}

// VoiceInterimMsg delivers a provisional voice transcript for display.
// An empty Text clears the interim line.
type VoiceInterimMsg struct {
	Text string
}

// VoiceToggledMsg reports the result of turning voice input on or off.
type VoiceToggledMsg struct {
	Listening bool
	Err       error
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// submitCmd runs one conversation turn. The controller blocks until the
// turn settles, so this must run as a command, never inline in Update.
func submitCmd(ctrl *conversation.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.Submit(context.Background(), text, nil)
		return TurnFinishedMsg{Err: err}
	}
}

// toggleVoiceCmd flips the voice adapter between listening and stopped.
func toggleVoiceCmd(adapter *voice.Adapter) tea.Cmd {
	return func() tea.Msg {
		if adapter.Listening() {
			err := adapter.Stop()
			return VoiceToggledMsg{Listening: false, Err: err}
		}
		err := adapter.Start()
		return VoiceToggledMsg{Listening: err == nil, Err: err}
	}
}
