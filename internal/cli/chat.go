// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Plain-terminal interactive chat for the aide CLI.
//
// Handles "aide chat": a readline-style loop over the same conversation
// controller the TUI uses. Useful over SSH and in terminals where the
// full-screen view is unwanted.
//
// Slash commands:
//   /new         Start a fresh conversation
//   /citations   Toggle the citation variant on the last answer
//   /save        Save the conversation to local storage
//   /help        Show commands
//   /quit        Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/aide-tui/internal/config"
	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Arrow keys navigate
// history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the interactive chat loop.
func HandleChat(args Args) error {
	if !IsTTY() {
		return errors.New("aide chat needs an interactive terminal (use aide ask for piped input)")
	}

	cfg := config.Global()
	ctrl := conversation.NewController(BackendClient())

	var store *storage.Store
	if cfg.Storage.Enabled {
		path := cfg.Storage.DBPath
		if path == "" {
			var err error
			if path, err = storage.DefaultPath(); err != nil {
				path = ""
			}
		}
		if path != "" {
			if s, err := storage.Open(path); err == nil {
				store = s
				defer store.Close()
			} else {
				fmt.Fprintf(os.Stderr, "Warning: conversation storage unavailable: %v\n", err)
			}
		}
	}

	input := NewChatCLI()
	defer input.Close()

	if !args.Quiet {
		fmt.Println("aide chat - /help for commands, /quit to exit")
	}

	savedID := ""
	for {
		line, err := input.ReadInput("aide> ")
		if err != nil {
			// Ctrl-C aborts the prompt; Ctrl-D ends the session.
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("(interrupted)")
				continue
			}
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := runSlashCommand(line, ctrl, store, &savedID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		if err := ctrl.Submit(context.Background(), line, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		messages := ctrl.Messages()
		if len(messages) > 0 {
			displayResponse(messages[len(messages)-1].DisplayText())
		}
	}
}

// runSlashCommand executes one slash command. Returns true when the session
// should end.
func runSlashCommand(line string, ctrl *conversation.Controller, store *storage.Store, savedID *string) (bool, error) {
	cmd := strings.Fields(line)[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/new", "/clear":
		ctrl.Reset()
		*savedID = ""
		fmt.Println("Started a new conversation.")
		return false, nil

	case "/citations":
		if ctrl.ToggleLastCitations() {
			messages := ctrl.Messages()
			displayResponse(messages[len(messages)-1].DisplayText())
		} else {
			fmt.Println("The last answer has no citation variant.")
		}
		return false, nil

	case "/save":
		if store == nil {
			return false, errors.New("conversation storage is disabled")
		}
		id, err := store.Save(context.Background(), *savedID, storage.MessagesFromModel(ctrl.Messages()))
		if err != nil {
			return false, err
		}
		*savedID = id
		fmt.Printf("Saved conversation %s\n", id)
		return false, nil

	case "/help":
		fmt.Println("Commands: /new, /citations, /save, /quit")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}
