// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/ui/components"
	"github.com/jeranaias/aide-tui/internal/ui/styles"
	"github.com/jeranaias/aide-tui/internal/voice"
)

// Layout constants. The viewport height is the terminal height minus these.
const (
	headerHeight    = 1
	inputAreaHeight = 3
	statusBarHeight = 1
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It renders the state
// owned by the conversation controller; it never mutates messages itself.
type Model struct {
	theme *styles.Theme

	width  int
	height int
	ready  bool

	controller *conversation.Controller
	voice      *voice.Adapter // nil when voice input is not configured

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	markdown *components.MarkdownRenderer

	keyMap KeyMap

	voiceListening bool
	voiceInterim   string
	statusMsg      string
}

// New creates the chat model. The voice adapter may be nil; the markdown
// wrap width follows the UI config.
func New(theme *styles.Theme, ctrl *conversation.Controller, adapter *voice.Adapter, wrap int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII spinner frames so the animation survives limited terminals.
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	return Model{
		theme:      theme,
		controller: ctrl,
		voice:      adapter,
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		markdown:   components.NewMarkdownRenderer(wrap),
		keyMap:     DefaultKeyMap(),
	}
}

// Init starts the cursor blink and spinner animations.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Controller exposes the conversation controller, for wiring the update
// callback to Program.Send.
func (m Model) Controller() *conversation.Controller {
	return m.controller
}
