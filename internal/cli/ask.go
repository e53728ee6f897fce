// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler for the aide CLI.
//
// Handles "aide ask", which sends one question to the backend, consumes the
// streamed reply, and prints it.
//
// Examples:
//   aide ask "What's on my calendar tomorrow?"
//   aide ask --cited "Summarize my meeting notes"
//   aide ask --json "ping" | jq .raw_response

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/aide-tui/internal/stream"
	"github.com/jeranaias/aide-tui/internal/transport"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the glamour renderer for terminal output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display. Returns the
// original content if rendering fails or the renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints a response, rendering markdown only when stdout is
// a TTY so piped output stays clean.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Println(response)
	}
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk runs a single question against the backend.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" && !IsTTY() {
		// Piped usage: aide ask < question.txt
		data, err := io.ReadAll(os.Stdin)
		if err == nil {
			query = strings.TrimSpace(string(data))
		}
	}
	if query == "" {
		return errors.New("no question given (usage: aide ask \"question\")")
	}

	client := BackendClient()

	if !args.Quiet && IsStdoutTTY() {
		fmt.Fprintln(os.Stderr, "Asking...")
	}

	body, err := client.Send(context.Background(), query, nil)
	if err != nil {
		if transport.IsTimeout(err) {
			return fmt.Errorf("backend timed out: %w", err)
		}
		return err
	}
	defer body.Close()

	acc := stream.NewReplyAccumulator()
	if err := stream.Consume(context.Background(), body, acc.Apply); err != nil {
		return fmt.Errorf("response stream failed: %w", err)
	}

	if args.JSON {
		return printFinalJSON(acc)
	}

	displayResponse(pickAnswer(acc, args.Cited))
	return nil
}

// pickAnswer selects the answer variant to print. The raw response is the
// default; --cited switches to the annotated one when the backend sent it.
func pickAnswer(acc *stream.ReplyAccumulator, wantCited bool) string {
	if wantCited {
		if cited, ok := acc.Cited(); ok && cited != "" {
			return cited
		}
	}
	return acc.Raw()
}

// printFinalJSON emits the final result as one JSON object. When the stream
// ended without a final frame, one is synthesized from the accumulator.
func printFinalJSON(acc *stream.ReplyAccumulator) error {
	final := acc.Final()
	if final == nil {
		synthesized := stream.FinalResult{RawResponse: acc.Raw()}
		if cited, ok := acc.Cited(); ok {
			synthesized.CitedResponse = cited
			synthesized.HasCitations = true
		}
		final = &synthesized
	}

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
