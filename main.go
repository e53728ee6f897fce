// aide - personal assistant for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aide-tui/internal/cli"
	"github.com/jeranaias/aide-tui/internal/config"
	"github.com/jeranaias/aide-tui/internal/conversation"
	"github.com/jeranaias/aide-tui/internal/storage"
	"github.com/jeranaias/aide-tui/internal/ui/chat"
	"github.com/jeranaias/aide-tui/internal/ui/styles"
	"github.com/jeranaias/aide-tui/internal/voice"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Configuration loads before dispatch; every command reads it.
	if cfg, err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default configuration: %v\n", err)
	} else {
		config.SetGlobal(cfg)
	}

	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		fail(runTUI(args))
	case cli.CmdAsk:
		fail(cli.HandleAsk(args))
	case cli.CmdChat:
		fail(cli.HandleChat(args))
	case cli.CmdServe:
		fail(cli.HandleServe(args))
	case cli.CmdSessions:
		fail(cli.HandleSessions(args))
	case cli.CmdConfig:
		fail(cli.HandleConfig(args))
	case cli.CmdSetup:
		fail(cli.HandleSetup(args))
	case cli.CmdCalendar:
		fail(cli.HandleCalendar(args))
	case cli.CmdNotion:
		fail(cli.HandleNotion(args))
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}
}

// fail prints an error and exits non-zero.
func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the full-screen chat view.
func runTUI(args cli.Args) error {
	cfg := config.Global()

	ctrl := conversation.NewController(cli.BackendClient())

	var adapter *voice.Adapter
	if cfg.Voice.Enabled {
		rec, err := voice.NewCommandRecognizer(cfg.Voice.Command)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: voice input unavailable: %v\n", err)
		} else {
			adapter = voice.NewAdapter(rec, func(text string) {
				// Final transcripts go through the same submit path as typed
				// input. Busy turns drop the transcript by design of the
				// controller's in-flight guard.
				go ctrl.Submit(context.Background(), text, nil)
			})
			adapter.SetRestartDelay(time.Duration(cfg.Voice.RestartDelayMs) * time.Millisecond)
			defer adapter.Close()
		}
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	model := chat.New(theme, ctrl, adapter, cfg.UI.WordWrap)

	program := tea.NewProgram(model, tea.WithAltScreen())

	// Controller updates and voice interims arrive from other goroutines;
	// Program.Send is the only safe way into the update loop.
	ctrl.SetOnUpdate(func() {
		program.Send(chat.ConversationUpdatedMsg{})
	})
	if adapter != nil {
		adapter.SetOnInterim(func(text string) {
			program.Send(chat.VoiceInterimMsg{Text: text})
		})
	}

	// Config changes picked up live; only the pieces safe to swap mid-run.
	watcher, err := config.Watch(func(updated *config.Config) {
		config.SetGlobal(updated)
	})
	if err == nil {
		defer watcher.Close()
	}

	_, err = program.Run()
	if err != nil {
		return err
	}

	// Persist the finished conversation on exit when storage is on.
	if cfg.Storage.Enabled && len(ctrl.Messages()) > 0 {
		saveConversation(cfg, ctrl)
	}
	return nil
}

// saveConversation writes the session transcript to the local archive and
// applies the retention policy. Failures are reported, never fatal.
func saveConversation(cfg *config.Config, ctrl *conversation.Controller) {
	path := cfg.Storage.DBPath
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: conversation not saved: %v\n", err)
			return
		}
	}

	store, err := storage.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: conversation not saved: %v\n", err)
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := store.Save(ctx, "", storage.MessagesFromModel(ctrl.Messages())); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: conversation not saved: %v\n", err)
		return
	}
	if cfg.Storage.RetentionDays > 0 {
		store.Prune(ctx, cfg.Storage.RetentionDays)
	}
}
