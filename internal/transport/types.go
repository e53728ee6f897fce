// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"strings"

	"github.com/jeranaias/aide-tui/internal/model"
	"github.com/jeranaias/aide-tui/internal/util"
)

// =============================================================================
// ATTACHMENT CONSTRAINTS
// =============================================================================

const (
	// MaxFiles is the maximum number of attachments per request.
	MaxFiles = 3

	// MaxFileSize is the per-file byte cap (5 MiB).
	MaxFileSize = 5 * 1024 * 1024
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// FileAttachment is one file staged for upload.
type FileAttachment struct {
	Name string
	Data []byte
}

// Size returns the attachment size in bytes.
func (f FileAttachment) Size() int {
	return len(f.Data)
}

// ChatRequest is the JSON body sent to the chat endpoint: the replayed
// history plus the new user message, in order.
type ChatRequest struct {
	Messages []model.ChatHistoryEntry `json:"messages"`
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports attachments rejected before any network call.
// Every offending file is listed, not just the first.
type ValidationError struct {
	TooMany   bool
	FileCount int
	Oversized []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string
	if e.TooMany {
		parts = append(parts, "too many files: "+util.IntToString(e.FileCount)+
			" (max "+util.IntToString(MaxFiles)+")")
	}
	if len(e.Oversized) > 0 {
		parts = append(parts, "files exceed "+util.Int64ToString(MaxFileSize/1024/1024)+
			" MiB: "+strings.Join(e.Oversized, ", "))
	}
	if len(parts) == 0 {
		return "invalid attachments"
	}
	return strings.Join(parts, "; ")
}

// ValidateFiles checks the attachment constraints. Returns nil when the set
// is acceptable; otherwise a ValidationError naming every violation.
func ValidateFiles(files []FileAttachment) error {
	verr := &ValidationError{}
	if len(files) > MaxFiles {
		verr.TooMany = true
		verr.FileCount = len(files)
	}
	for _, f := range files {
		if f.Size() > MaxFileSize {
			verr.Oversized = append(verr.Oversized, f.Name)
		}
	}
	if verr.TooMany || len(verr.Oversized) > 0 {
		return verr
	}
	return nil
}
