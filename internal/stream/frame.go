// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "encoding/json"

// =============================================================================
// FRAME TYPES
// =============================================================================

// CitationSentinel is the protocol marker line. The line following it is a
// cited chunk; the mode then reverts to plain content (one-shot, not a
// persistent switch).
const CitationSentinel = "__CITATIONS_START__"

// FrameKind classifies one unit of the response stream.
type FrameKind int

const (
	// FrameContent is an incremental piece of the plain answer text.
	FrameContent FrameKind = iota

	// FrameCitationMarker is the sentinel line itself. It carries no text.
	FrameCitationMarker

	// FrameCited is a fully-formed citation-annotated restatement of the
	// whole answer so far. It replaces, never appends.
	FrameCited

	// FrameFinal is the authoritative final result.
	FrameFinal
)

// String returns the frame kind name for logging.
func (k FrameKind) String() string {
	switch k {
	case FrameContent:
		return "content"
	case FrameCitationMarker:
		return "citation-marker"
	case FrameCited:
		return "cited"
	case FrameFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Frame is one classified unit of the stream. Text is set for content and
// cited frames; Final is set only for final result frames.
type Frame struct {
	Kind  FrameKind
	Text  string
	Final *FinalResult
}

// FinalResult is the terminal frame's payload. CitedResponse is empty when
// the backend produced no annotated variant.
type FinalResult struct {
	RawResponse   string `json:"raw_response"`
	CitedResponse string `json:"cited_response"`
	HasCitations  bool   `json:"citations"`
}

// FrameCallback receives each frame as it is demultiplexed.
type FrameCallback func(Frame)

// =============================================================================
// FINAL RESULT DETECTION
// =============================================================================

// parseFinal reports whether a complete line is the final result frame: a
// JSON object containing the "raw_response" key. Anything that fails to
// parse is not a final frame; the caller treats it as plain content.
func parseFinal(line string) (*FinalResult, bool) {
	if len(line) == 0 || line[0] != '{' {
		return nil, false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		return nil, false
	}
	if _, ok := probe["raw_response"]; !ok {
		return nil, false
	}

	var final FinalResult
	if err := json.Unmarshal([]byte(line), &final); err != nil {
		return nil, false
	}
	return &final, true
}
