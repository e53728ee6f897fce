// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/transport"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all Bubble Tea messages for the chat view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case ConversationUpdatedMsg:
		m.refreshViewport()
		return m, nil

	case TurnFinishedMsg:
		return m.handleTurnFinished(msg), nil

	case VoiceInterimMsg:
		m.voiceInterim = msg.Text
		return m, nil

	case VoiceToggledMsg:
		m.voiceListening = msg.Listening
		if msg.Err != nil {
			m.statusMsg = "Voice input failed: " + msg.Err.Error()
		} else if msg.Listening {
			m.statusMsg = "Listening..."
		} else {
			m.statusMsg = ""
			m.voiceInterim = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.controller.Busy() {
			// The viewport content embeds the spinner frame, so it has to be
			// rebuilt on every tick while a turn is in flight.
			m.refreshViewport()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey dispatches keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		text := m.input.Value()
		m.input.Reset()
		m.statusMsg = ""
		return m, submitCmd(m.controller, text)

	case key.Matches(msg, m.keyMap.ToggleCitations):
		if m.controller.ToggleLastCitations() {
			m.refreshViewport()
		} else {
			m.statusMsg = "No citations to toggle."
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Voice):
		if m.voice == nil {
			m.statusMsg = "Voice input is not configured."
			return m, nil
		}
		return m, toggleVoiceCmd(m.voice)

	case key.Matches(msg, m.keyMap.Clear):
		m.controller.Reset()
		m.statusMsg = ""
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleResize recomputes the viewport dimensions.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	m.input.Width = m.width - 6

	m.ready = true
	m.refreshViewport()
	return m
}

// handleTurnFinished surfaces pre-flight rejections in the status bar.
// Transport and stream failures already settled the placeholder with the
// error text, so they need no extra handling here.
func (m Model) handleTurnFinished(msg TurnFinishedMsg) Model {
	if msg.Err == nil {
		return m
	}
	var verr *transport.ValidationError
	switch {
	case errors.Is(msg.Err, conversation.ErrEmptyInput):
		m.statusMsg = "Type a message first."
	case errors.As(msg.Err, &verr):
		m.statusMsg = verr.Error()
	}
	return m
}

// refreshViewport rebuilds the rendered transcript and pins to the bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}
