// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies as terminal markdown. Rendering
// failures fall back to the plain input so a bad reply never blanks the view.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	wrap     int
}

// NewMarkdownRenderer creates a renderer wrapping at the given column width.
// wrap <= 0 disables wrapping.
func NewMarkdownRenderer(wrap int) *MarkdownRenderer {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
	}
	if wrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wrap))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		renderer = nil
	}
	return &MarkdownRenderer{renderer: renderer, wrap: wrap}
}

// Render renders markdown content for terminal display. Returns the input
// unchanged if the renderer is unavailable or fails.
func (m *MarkdownRenderer) Render(content string) string {
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// Wrap returns the configured wrap width.
func (m *MarkdownRenderer) Wrap() int {
	return m.wrap
}
