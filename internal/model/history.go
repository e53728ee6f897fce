// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CHAT HISTORY
// =============================================================================

// ChatHistoryEntry is one prior turn replayed as context on every request.
// The log is the entire conversational memory; the backend keeps no session
// between requests.
type ChatHistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the append-only log of completed turns. A user entry is always
// followed by the corresponding assistant entry, except when the request
// failed - failed requests still log the user turn.
type History struct {
	entries []ChatHistoryEntry
}

// NewHistory creates an empty history log.
func NewHistory() *History {
	return &History{}
}

// AppendUser records a user turn.
func (h *History) AppendUser(content string) {
	h.entries = append(h.entries, ChatHistoryEntry{Role: RoleUser, Content: content})
}

// AppendAssistant records an assistant turn.
func (h *History) AppendAssistant(content string) {
	h.entries = append(h.entries, ChatHistoryEntry{Role: RoleAssistant, Content: content})
}

// Entries returns a copy of the log so callers cannot mutate it.
func (h *History) Entries() []ChatHistoryEntry {
	out := make([]ChatHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of logged turns.
func (h *History) Len() int {
	return len(h.entries)
}

// Reset clears the log. Only a full conversation reset does this.
func (h *History) Reset() {
	h.entries = nil
}
