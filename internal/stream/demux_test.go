// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

// feedAll pushes each chunk through the demux and returns all frames,
// including the end-of-stream flush.
func feedAll(chunks ...string) []Frame {
	d := NewDemux()
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, d.Feed([]byte(c))...)
	}
	return append(frames, d.Flush()...)
}

// coalesce merges adjacent content frames so chunking differences drop out
// and only the classification sequence remains.
func coalesce(frames []Frame) []Frame {
	var out []Frame
	for _, f := range frames {
		if f.Kind == FrameContent && len(out) > 0 && out[len(out)-1].Kind == FrameContent {
			out[len(out)-1].Text += f.Text
			continue
		}
		out = append(out, f)
	}
	return out
}

// =============================================================================
// DEMUX TESTS
// =============================================================================

func TestDemux_PlainChunks(t *testing.T) {
	frames := feedAll("Hi", " there")

	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[0].Kind != FrameContent || frames[0].Text != "Hi" {
		t.Errorf("frame 0 = %+v", frames[0])
	}
	if frames[1].Kind != FrameContent || frames[1].Text != " there" {
		t.Errorf("frame 1 = %+v", frames[1])
	}
}

func TestDemux_ContentKeepsLineBreaks(t *testing.T) {
	frames := feedAll("line1\nline2\n")

	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	var sb strings.Builder
	for _, f := range frames {
		sb.WriteString(f.Text)
	}
	if sb.String() != "line1\nline2\n" {
		t.Errorf("concatenated = %q, newlines must survive", sb.String())
	}
}

func TestDemux_CitationMarkerIsOneShot(t *testing.T) {
	frames := feedAll(CitationSentinel + "\nAnswer [1].\nplain again\n")

	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	if frames[0].Kind != FrameCitationMarker {
		t.Errorf("frame 0 = %+v, want citation marker", frames[0])
	}
	if frames[1].Kind != FrameCited || frames[1].Text != "Answer [1]." {
		t.Errorf("frame 1 = %+v, want cited chunk", frames[1])
	}
	// Mode reverts after exactly one line.
	if frames[2].Kind != FrameContent {
		t.Errorf("frame 2 = %+v, want plain content after one-shot", frames[2])
	}
}

func TestDemux_SentinelSplitAcrossReads(t *testing.T) {
	frames := feedAll("__CITA", "TIONS_START__\n", "Answer [1].")

	if len(frames) != 2 {
		t.Fatalf("frames = %v, want marker then cited", frames)
	}
	if frames[0].Kind != FrameCitationMarker {
		t.Errorf("frame 0 = %+v", frames[0])
	}
	if frames[1].Kind != FrameCited || frames[1].Text != "Answer [1]." {
		t.Errorf("frame 1 = %+v", frames[1])
	}
}

func TestDemux_CitedLineBufferedUntilComplete(t *testing.T) {
	d := NewDemux()
	d.Feed([]byte(CitationSentinel + "\n"))

	// A partial cited line must not be emitted piecemeal.
	if frames := d.Feed([]byte("Answer ")); len(frames) != 0 {
		t.Fatalf("partial cited line leaked: %v", frames)
	}
	frames := d.Feed([]byte("[1].\n"))
	if len(frames) != 1 || frames[0].Kind != FrameCited || frames[0].Text != "Answer [1]." {
		t.Fatalf("frames = %v", frames)
	}
}

func TestDemux_FinalResult(t *testing.T) {
	line := `{"raw_response": "Answer.", "cited_response": "Answer [1].", "citations": true}` + "\n"
	frames := feedAll(line)

	if len(frames) != 1 || frames[0].Kind != FrameFinal {
		t.Fatalf("frames = %v, want one final frame", frames)
	}
	final := frames[0].Final
	if final.RawResponse != "Answer." {
		t.Errorf("RawResponse = %q", final.RawResponse)
	}
	if final.CitedResponse != "Answer [1]." {
		t.Errorf("CitedResponse = %q", final.CitedResponse)
	}
	if !final.HasCitations {
		t.Error("HasCitations should be true")
	}
}

func TestDemux_FinalResultSplitAcrossReads(t *testing.T) {
	frames := feedAll(`{"raw_res`, `ponse": "A", "citations": false}`+"\n")

	if len(frames) != 1 || frames[0].Kind != FrameFinal {
		t.Fatalf("frames = %v, want one final frame", frames)
	}
	if frames[0].Final.RawResponse != "A" {
		t.Errorf("RawResponse = %q", frames[0].Final.RawResponse)
	}
}

func TestDemux_NullCitedResponse(t *testing.T) {
	frames := feedAll(`{"raw_response": "A", "cited_response": null, "citations": false}` + "\n")

	if len(frames) != 1 || frames[0].Kind != FrameFinal {
		t.Fatalf("frames = %v", frames)
	}
	if frames[0].Final.CitedResponse != "" {
		t.Errorf("null cited_response should decode to empty string")
	}
}

func TestDemux_MalformedJSONIsContent(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"invalid json", "{not json at all}\n"},
		{"json without raw_response", `{"foo": "bar"}` + "\n"},
		{"truncated json at eof", `{"raw_response": "never closed`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := feedAll(tt.line)
			if len(frames) != 1 || frames[0].Kind != FrameContent {
				t.Errorf("frames = %v, want plain content fallback", frames)
			}
		})
	}
}

func TestDemux_EmbeddedFinalJSONStaysContent(t *testing.T) {
	// The final object only counts at the start of a line. When the head of
	// the line already streamed out as content, the JSON-looking remainder
	// must stay content even though it arrives as its own read.
	frames := feedAll("see ", `{"raw_response": "x", "citations": false}`+"\n")

	var sb strings.Builder
	for _, f := range frames {
		if f.Kind != FrameContent {
			t.Fatalf("frame = %+v, mid-line JSON must not become a final result", f)
		}
		sb.WriteString(f.Text)
	}
	if got := sb.String(); got != `see {"raw_response": "x", "citations": false}`+"\n" {
		t.Errorf("concatenated = %q", got)
	}
}

func TestDemux_EmbeddedSentinelStaysContent(t *testing.T) {
	// Same rule for the sentinel: "note: __CITATIONS_START__" split after
	// "note: " must not flip the demux into cited mode, or the next content
	// line would wrongly replace the whole answer.
	frames := feedAll("note: ", CitationSentinel+"\n", "next answer line\n")

	for _, f := range frames {
		if f.Kind != FrameContent {
			t.Fatalf("frame = %+v, mid-line sentinel must not become a marker", f)
		}
	}
}

func TestDemux_SplitPointsDoNotChangeClassification(t *testing.T) {
	input := `see {"raw_response": "x", "citations": false}` + "\n" +
		"note: " + CitationSentinel + "\n" +
		"still plain\n" +
		CitationSentinel + "\n" +
		"Answer [1].\n" +
		`{"raw_response": "Answer.", "cited_response": "Answer [1].", "citations": true}` + "\n"

	want := coalesce(feedAll(input))

	// Sanity-check the unsplit classification before comparing against it.
	kinds := make([]FrameKind, len(want))
	for i, f := range want {
		kinds[i] = f.Kind
	}
	if !reflect.DeepEqual(kinds, []FrameKind{FrameContent, FrameCitationMarker, FrameCited, FrameFinal}) {
		t.Fatalf("unsplit kinds = %v", kinds)
	}

	for split := 1; split < len(input); split++ {
		got := coalesce(feedAll(input[:split], input[split:]))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("split at %d: frames = %+v, want %+v", split, got, want)
		}
	}
}

func TestDemux_FlushesPartialLineAtEOF(t *testing.T) {
	frames := feedAll(CitationSentinel+"\n", "Answer [1].")

	if len(frames) != 2 {
		t.Fatalf("frames = %v", frames)
	}
	if frames[1].Kind != FrameCited || frames[1].Text != "Answer [1]." {
		t.Errorf("unterminated cited line must flush at EOF: %+v", frames[1])
	}
}

func TestDemux_EmptyStream(t *testing.T) {
	if frames := feedAll(""); len(frames) != 0 {
		t.Errorf("frames = %v, want none", frames)
	}
}

// =============================================================================
// CONSUME TESTS
// =============================================================================

func TestConsume(t *testing.T) {
	input := "Answer body.\n" +
		CitationSentinel + "\n" +
		"Answer body [1].\n" +
		`{"raw_response": "Answer body.", "cited_response": "Answer body [1].", "citations": true}` + "\n"

	var kinds []FrameKind
	err := Consume(context.Background(), strings.NewReader(input), func(f Frame) {
		kinds = append(kinds, f.Kind)
	})
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	want := []FrameKind{FrameContent, FrameCitationMarker, FrameCited, FrameFinal}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("frame %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestConsume_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Consume(ctx, strings.NewReader("some text\n"), func(Frame) {})
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestReplyAccumulator_ContentConcatenates(t *testing.T) {
	a := NewReplyAccumulator()
	a.Apply(Frame{Kind: FrameContent, Text: "Hi"})

	if a.DisplayText() != "Hi" {
		t.Errorf("DisplayText = %q", a.DisplayText())
	}

	a.Apply(Frame{Kind: FrameContent, Text: " there"})
	if a.DisplayText() != "Hi there" {
		t.Errorf("DisplayText = %q, want concatenation in arrival order", a.DisplayText())
	}
}

func TestReplyAccumulator_CitedReplaces(t *testing.T) {
	a := NewReplyAccumulator()
	a.Apply(Frame{Kind: FrameContent, Text: "Answer."})
	a.Apply(Frame{Kind: FrameCitationMarker})
	a.Apply(Frame{Kind: FrameCited, Text: "Answer [1]."})

	if a.DisplayText() != "Answer [1]." {
		t.Errorf("DisplayText = %q, cited chunk must replace", a.DisplayText())
	}
	if a.Raw() != "Answer." {
		t.Errorf("Raw = %q, raw content must survive", a.Raw())
	}
	cited, ok := a.Cited()
	if !ok || cited != "Answer [1]." {
		t.Errorf("Cited = %q, %v", cited, ok)
	}
}

func TestReplyAccumulator_FinalOverrides(t *testing.T) {
	a := NewReplyAccumulator()
	a.Apply(Frame{Kind: FrameContent, Text: "streamed text"})
	a.Apply(Frame{Kind: FrameFinal, Final: &FinalResult{
		RawResponse:   "Final answer.",
		CitedResponse: "Final answer [1].",
		HasCitations:  true,
	}})

	if !a.HasFinal() {
		t.Fatal("HasFinal should be true")
	}
	if a.DisplayText() != "Final answer [1]." {
		t.Errorf("DisplayText = %q, final result wins", a.DisplayText())
	}
	if a.Raw() != "Final answer." {
		t.Errorf("Raw = %q", a.Raw())
	}
}

func TestReplyAccumulator_FinalWithoutCitations(t *testing.T) {
	a := NewReplyAccumulator()
	a.Apply(Frame{Kind: FrameFinal, Final: &FinalResult{RawResponse: "plain"}})

	if a.DisplayText() != "plain" {
		t.Errorf("DisplayText = %q, want raw response", a.DisplayText())
	}
	cited, ok := a.Cited()
	if ok || cited != "" {
		t.Errorf("Cited = (%q, %v), want none", cited, ok)
	}
}
