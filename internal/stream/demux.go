// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"io"
	"strings"
)

// =============================================================================
// DEMULTIPLEXER
// =============================================================================

// Demux splits the response byte stream into frames.
//
// Reads may end mid-line. A partial segment whose first bytes already rule
// out the sentinel and the final JSON object is emitted immediately as plain
// content, so interim text stays responsive; from then on the remainder of
// that line is locked in as content no matter what it contains, which keeps
// frame classification independent of where reads happen to split. Segments
// that could still become a protocol line are held until the line completes.
// A partial cited line is always held, because a cited chunk replaces the
// whole display text and must arrive intact.
type Demux struct {
	pending   []byte
	citedNext bool

	// midLine means the head of the current line was already emitted as
	// content; its remaining bytes can only ever be content.
	midLine bool
}

// NewDemux creates a demultiplexer for one response stream.
func NewDemux() *Demux {
	return &Demux{}
}

// Feed consumes one read's worth of bytes and returns the frames completed
// by it.
func (d *Demux) Feed(data []byte) []Frame {
	d.pending = append(d.pending, data...)

	var frames []Frame
	for {
		idx := bytes.IndexByte(d.pending, '\n')
		if idx < 0 {
			break
		}
		line := d.pending[:idx+1]
		d.pending = d.pending[idx+1:]

		if d.midLine {
			// The head of this line already went out as content, so the
			// rest cannot start a protocol line.
			d.midLine = false
			frames = append(frames, Frame{Kind: FrameContent, Text: string(line)})
			continue
		}
		frames = append(frames, d.classifyLine(string(line)))
	}

	// Emit the partial tail early when it is provably plain content.
	if len(d.pending) > 0 {
		if d.midLine {
			frames = append(frames, Frame{Kind: FrameContent, Text: string(d.pending)})
			d.pending = nil
		} else if !d.citedNext && !couldBeProtocolLine(d.pending) {
			frames = append(frames, Frame{Kind: FrameContent, Text: string(d.pending)})
			d.pending = nil
			d.midLine = true
		}
	}

	return frames
}

// Flush classifies whatever is still buffered at end of stream.
func (d *Demux) Flush() []Frame {
	if len(d.pending) == 0 {
		return nil
	}
	line := string(d.pending)
	d.pending = nil
	if d.midLine {
		d.midLine = false
		return []Frame{{Kind: FrameContent, Text: line}}
	}
	return []Frame{d.classifyLine(line)}
}

// classifyLine applies the protocol grammar to one complete line.
func (d *Demux) classifyLine(line string) Frame {
	trimmed := strings.TrimRight(line, "\r\n")

	if d.citedNext {
		d.citedNext = false
		return Frame{Kind: FrameCited, Text: trimmed}
	}

	if trimmed == CitationSentinel {
		d.citedNext = true
		return Frame{Kind: FrameCitationMarker}
	}

	if final, ok := parseFinal(trimmed); ok {
		return Frame{Kind: FrameFinal, Final: final}
	}

	// Plain content keeps its line break: answers span multiple lines.
	return Frame{Kind: FrameContent, Text: line}
}

// couldBeProtocolLine reports whether a partial segment might still complete
// into the sentinel or the final JSON object once more bytes arrive.
func couldBeProtocolLine(partial []byte) bool {
	if partial[0] == '{' {
		return true
	}
	if len(partial) <= len(CitationSentinel) &&
		strings.HasPrefix(CitationSentinel, string(partial)) {
		return true
	}
	return false
}

// =============================================================================
// STREAM CONSUMPTION
// =============================================================================

// Consume reads the stream to completion, invoking the callback for each
// frame in order. Blocks until EOF, a read error, or context cancellation.
// Remaining buffered text is flushed through the grammar before returning.
func Consume(ctx context.Context, r io.Reader, callback FrameCallback) error {
	d := NewDemux()
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, f := range d.Feed(buf[:n]) {
				callback(f)
			}
		}
		if err != nil {
			if err == io.EOF {
				for _, f := range d.Flush() {
					callback(f)
				}
				return nil
			}
			return err
		}
	}
}
