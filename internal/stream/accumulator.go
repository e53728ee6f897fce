// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "strings"

// =============================================================================
// REPLY ACCUMULATOR
// =============================================================================

// ReplyAccumulator folds frames into the assistant's reply. Content chunks
// concatenate; a cited chunk replaces the display wholesale; a final result
// overrides everything.
type ReplyAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content  strings.Builder
	cited    string
	hasCited bool
	final    *FinalResult
}

// NewReplyAccumulator creates an empty accumulator.
func NewReplyAccumulator() *ReplyAccumulator {
	return &ReplyAccumulator{}
}

// Apply folds one frame into the accumulated reply.
func (a *ReplyAccumulator) Apply(f Frame) {
	switch f.Kind {
	case FrameContent:
		a.content.WriteString(f.Text)
	case FrameCited:
		a.cited = f.Text
		a.hasCited = true
	case FrameFinal:
		a.final = f.Final
	case FrameCitationMarker:
		// Carries no text.
	}
}

// DisplayText returns the text to show right now: the final result wins,
// then the latest cited restatement, then the accumulated content.
func (a *ReplyAccumulator) DisplayText() string {
	if a.final != nil {
		if a.final.CitedResponse != "" {
			return a.final.CitedResponse
		}
		return a.final.RawResponse
	}
	if a.hasCited {
		return a.cited
	}
	return a.content.String()
}

// Raw returns the unannotated answer text.
func (a *ReplyAccumulator) Raw() string {
	if a.final != nil {
		return a.final.RawResponse
	}
	return a.content.String()
}

// Cited returns the citation-annotated variant and whether one exists.
func (a *ReplyAccumulator) Cited() (string, bool) {
	if a.final != nil {
		return a.final.CitedResponse, a.final.HasCitations
	}
	return a.cited, a.hasCited
}

// HasFinal reports whether a final result frame arrived.
func (a *ReplyAccumulator) HasFinal() bool {
	return a.final != nil
}

// Final returns the final result frame payload, or nil.
func (a *ReplyAccumulator) Final() *FinalResult {
	return a.final
}
