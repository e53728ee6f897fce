// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for aide.

package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdServe
	CmdSessions
	CmdConfig
	CmdSetup
	CmdCalendar
	CmdNotion
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Cited   bool // Prefer the citation-annotated answer variant

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `aide - personal assistant for the terminal

Aide talks to your assistant backend and brings the answers to the
command line: a full-screen chat TUI, one-shot questions, calendar and
Notion lookups, and a local conversation archive.

Usage:
  aide                       Start the chat TUI (default)
  aide ask "question"        Ask a single question
  aide chat                  Interactive chat in the plain terminal
  aide serve                 Run the local development backend
  aide sessions [subcommand] Saved conversation management
  aide config [show|get|set] Configuration
  aide setup                 First-run wizard (backend URL and token)
  aide calendar [date]       Show calendar events
  aide notion [subcommand]   Browse Notion pages and databases
  aide version               Show version
  aide help                  Show this help

Ask Command:
  aide ask "What's on my calendar tomorrow?"
    --cited                  Show the citation-annotated answer
    --json                   Print the raw final result as JSON

Session Commands:
  aide sessions list                List saved conversations
  aide sessions show <id>           Print one conversation
  aide sessions search <query>      Search message text
  aide sessions export <id>         Export a conversation
    --format md|json                Export format (default: md)
    --output FILE                   Write to file (default: stdout)
  aide sessions delete <id> --confirm
  aide sessions clear --confirm     Delete all conversations

Config Commands:
  aide config show                  Print the active configuration
  aide config get <key>             Read one value (e.g. ui.theme)
  aide config set <key> <value>     Write one value
  aide config path                  Print the config file location

Calendar Commands:
  aide calendar                     Today's events
  aide calendar 2026-09-01          Events on a specific day
  aide calendar add "description"   Create an event
    --date YYYY-MM-DD               Event date (default: today)
    --time HH:MM                    Start time
    --duration MIN                  Length in minutes
    --location WHERE                Location
  aide calendar delete <event-id>   Remove an event

Notion Commands:
  aide notion pages                 List pages (follows pagination)
  aide notion databases             List databases
  aide notion page <id>             Show one page

Global Flags:
  -q, --quiet                Minimal output
  --verbose                  Verbose output
  --json                     Machine-readable output where supported

Environment:
  AIDE_BACKEND_URL           Override the backend base URL
  AIDE_TOKEN                 Bearer token (skips the sealed token store)

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("aide version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is the testable core of Parse.
func parseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No arguments: the TUI is the product.
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "serve", "server":
		return CmdServe, parsedArgs

	case "sessions", "session":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdSessions, parsedArgs

	case "config":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdConfig, parsedArgs

	case "setup":
		return CmdSetup, parsedArgs

	case "calendar", "cal":
		return CmdCalendar, parsedArgs

	case "notion":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdNotion, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown word: treat the whole line as an ask query.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parseAskArgs(&parsedArgs, parsedArgs.Raw)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--cited":
			parsedArgs.Cited = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// parseAskArgs joins the remaining positionals into the query.
func parseAskArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Query = JoinPositionalArgs(parser, 0)
	if parser.BoolFlag("cited") {
		args.Cited = true
	}
	if parser.BoolFlag("json") {
		args.JSON = true
	}
}
