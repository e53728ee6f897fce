// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry in the visible message list.
//
// Assistant messages begin life as a loading placeholder and are mutated in
// place while the response streams; they become immutable once settled. User
// messages are immutable from the moment they are appended. At most one
// trailing message has IsLoading set at any time.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Text is the content currently shown for this message. While streaming
	// it holds the accumulated interim value; after settlement it holds the
	// cited response when one exists, otherwise the raw response.
	Text string `json:"text"`

	// IsLoading marks the in-flight assistant placeholder.
	IsLoading bool `json:"is_loading,omitempty"`

	// Citation fields, populated only by a final result. CitedText, when
	// present, is an annotated restatement of RawText - never the reverse.
	RawText   string `json:"raw_text,omitempty"`
	CitedText string `json:"cited_text,omitempty"`
	IsCited   bool   `json:"is_cited,omitempty"`

	// ShowCitations is a display toggle owned by the consumer; it selects
	// between CitedText and RawText without mutating either.
	ShowCitations bool `json:"-"`
}

// NewUserMessage creates an immutable user message.
func NewUserMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewPlaceholderMessage creates the loading assistant placeholder that is
// mutated in place as stream frames arrive.
func NewPlaceholderMessage() *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		IsLoading: true,
		Timestamp: time.Now(),
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser reports whether the message was sent by the user.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// SetInterimText replaces the displayed text while the message is streaming.
// Settled messages are not modified.
func (m *Message) SetInterimText(text string) {
	if !m.IsLoading {
		return
	}
	m.Text = text
}

// Settle finalizes the placeholder from a final result. The cited response,
// when present, becomes the displayed text; the raw response is always kept.
func (m *Message) Settle(raw, cited string, isCited bool) {
	m.RawText = raw
	m.CitedText = cited
	m.IsCited = isCited
	m.ShowCitations = isCited
	if cited != "" {
		m.Text = cited
	} else {
		m.Text = raw
	}
	m.IsLoading = false
}

// SettleFromAccumulated finalizes the placeholder when the stream ended
// without a final result frame: whatever streamed in is the answer.
func (m *Message) SettleFromAccumulated(text string) {
	m.RawText = text
	m.Text = text
	m.IsLoading = false
}

// Fail replaces the placeholder with a terminal error text.
func (m *Message) Fail(errText string) {
	m.Text = errText
	m.RawText = ""
	m.CitedText = ""
	m.IsCited = false
	m.IsLoading = false
}

// DisplayText returns the text to render, honoring the citation toggle.
func (m *Message) DisplayText() string {
	if m.IsCited && m.CitedText != "" && !m.ShowCitations {
		return m.RawText
	}
	return m.Text
}

// ToggleCitations flips the citation display toggle. Returns false if the
// message has no citation-annotated variant.
func (m *Message) ToggleCitations() bool {
	if !m.IsCited || m.CitedText == "" {
		return false
	}
	m.ShowCitations = !m.ShowCitations
	return true
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.Text == "" && m.RawText == ""
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
