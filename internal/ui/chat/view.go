// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// This file contains the rendering logic: header, transcript, input area,
// and status bar. Layout is header (1 line) + viewport + input (3 lines) +
// status (1 line); the viewport height is set in handleResize.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/model"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// renderHeader renders the one-line title bar.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("aide")
	return m.theme.Header.Width(m.width).Render(title + " personal assistant")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderMessages renders the full transcript for the viewport.
func (m Model) renderMessages() string {
	messages := m.controller.Messages()
	if len(messages) == 0 {
		return m.theme.ThinkingText.Render("Ask me anything. Enter sends; C-r talks.")
	}

	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

// renderMessage renders one transcript entry with its role label.
func (m Model) renderMessage(msg *model.Message) string {
	if msg.IsUser() {
		label := m.theme.UserLabel.Render(msg.Role.DisplayName())
		return label + "\n" + m.theme.UserMessage.Render(msg.Text)
	}

	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())

	// In-flight placeholder: spinner until the first chunk, then the raw
	// accumulated text. Markdown waits for settlement; partial markup
	// renders badly.
	if msg.IsLoading {
		if msg.Text == "" {
			return label + "\n" + m.spinner.View() + m.theme.ThinkingText.Render(" Thinking...")
		}
		return label + "\n" + m.theme.AssistantMessage.Render(msg.Text)
	}

	if isErrorMessage(msg) {
		return label + "\n" + m.theme.ErrorMessage.Render(msg.Text)
	}

	body := strings.TrimRight(m.markdown.Render(msg.DisplayText()), "\n")
	rendered := label + "\n" + m.theme.AssistantMessage.Render(body)
	if msg.IsCited {
		rendered += "\n" + m.renderCitationBadge(msg)
	}
	return rendered
}

// renderCitationBadge shows which citation variant is displayed.
func (m Model) renderCitationBadge(msg *model.Message) string {
	if msg.ShowCitations {
		return m.theme.CitationBadge.Render("[cited · C-t for plain]")
	}
	return m.theme.CitationBadge.Render("[plain · C-t for cited]")
}

// isErrorMessage reports whether an assistant message is a failed turn.
// Failed placeholders carry the fixed error text and no raw response.
func isErrorMessage(msg *model.Message) bool {
	return msg.Text == conversation.ErrorText && msg.RawText == ""
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

// renderInput renders the input area, with the interim voice transcript
// above the prompt when one is in progress.
func (m Model) renderInput() string {
	var lines []string
	if m.voiceInterim != "" {
		lines = append(lines, m.theme.VoiceInterim.Render("~ "+m.voiceInterim))
	}
	lines = append(lines, m.input.View())
	return m.theme.InputContainer.Width(m.width - 2).Render(strings.Join(lines, "\n"))
}

// renderStatusBar renders the one-line status bar: state, voice indicator,
// transient status text, and key hints.
func (m Model) renderStatusBar() string {
	var left string
	switch m.controller.State() {
	case conversation.StateSending:
		left = m.theme.StatusKey.Render("sending")
	case conversation.StateStreaming:
		left = m.theme.StatusKey.Render("streaming")
	default:
		left = m.theme.StatusDesc.Render("ready")
	}

	if m.voiceListening {
		left += " " + m.theme.VoiceActive.Render("● voice")
	}
	if m.statusMsg != "" {
		left += " " + m.theme.WarningText.Render(m.statusMsg)
	}

	hints := m.theme.StatusDesc.Render("Enter send · C-t citations · C-r voice · C-l clear · C-c quit")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hints) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + hints)
}
