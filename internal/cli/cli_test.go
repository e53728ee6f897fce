// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/jeranaias/aide-tui/internal/stream"
)

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"no args defaults to TUI", nil, CmdTUI},
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"ask", []string{"ask", "hello"}, CmdAsk},
		{"chat", []string{"chat"}, CmdChat},
		{"serve", []string{"serve"}, CmdServe},
		{"server alias", []string{"server"}, CmdServe},
		{"sessions", []string{"sessions", "list"}, CmdSessions},
		{"session alias", []string{"session"}, CmdSessions},
		{"config", []string{"config", "show"}, CmdConfig},
		{"setup", []string{"setup"}, CmdSetup},
		{"calendar", []string{"calendar"}, CmdCalendar},
		{"cal alias", []string{"cal", "2026-09-01"}, CmdCalendar},
		{"notion", []string{"notion", "pages"}, CmdNotion},
		{"version", []string{"version"}, CmdVersion},
		{"help", []string{"--help"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := parseArgs(tt.argv)
			if cmd != tt.want {
				t.Errorf("parseArgs(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseArgs_UnknownWordBecomesAskQuery(t *testing.T) {
	cmd, args := parseArgs([]string{"what", "time", "is", "it"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what time is it" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := parseArgs([]string{"--quiet", "--json", "ask", "ping"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if !args.Quiet || !args.JSON {
		t.Errorf("global flags not parsed: %+v", args)
	}
	if args.Query != "ping" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgs_AskCitedFlag(t *testing.T) {
	_, args := parseArgs([]string{"ask", "--cited", "sources please"})
	if !args.Cited {
		t.Error("Cited flag not parsed")
	}
	if args.Query != "sources please" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgs_SessionsSubcommand(t *testing.T) {
	_, args := parseArgs([]string{"sessions", "delete", "abc", "--confirm"})
	if args.Subcommand != "delete" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
}

func TestPickAnswer(t *testing.T) {
	acc := stream.NewReplyAccumulator()
	acc.Apply(stream.Frame{Kind: stream.FrameFinal, Final: &stream.FinalResult{
		RawResponse:   "raw answer",
		CitedResponse: "cited answer [1]",
		HasCitations:  true,
	}})

	if got := pickAnswer(acc, false); got != "raw answer" {
		t.Errorf("default should be the raw variant: got %q", got)
	}
	if got := pickAnswer(acc, true); got != "cited answer [1]" {
		t.Errorf("--cited should select the annotated variant: got %q", got)
	}

	plain := stream.NewReplyAccumulator()
	plain.Apply(stream.Frame{Kind: stream.FrameContent, Text: "just text"})
	if got := pickAnswer(plain, true); got != "just text" {
		t.Errorf("cited requested but unavailable should fall back: got %q", got)
	}
}
