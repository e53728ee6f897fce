// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved conversation management for the aide CLI.
//
// Handles "aide sessions": list, show, search, export, delete, and clear
// over the local SQLite archive.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/aide-tui/internal/config"
	"github.com/jeranaias/aide-tui/internal/storage"
)

// openStore opens the configured conversation store.
func openStore() (*storage.Store, error) {
	cfg := config.Global()
	if !cfg.Storage.Enabled {
		return nil, errors.New("conversation storage is disabled (set storage.enabled = true)")
	}

	path := cfg.Storage.DBPath
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(args Args) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	parser := NewArgParser(args.Raw)
	ctx := context.Background()

	switch parser.Subcommand() {
	case "", "list":
		metas, err := store.List(ctx)
		if err != nil {
			return err
		}
		fmt.Print(storage.FormatSessionList(metas))
		return nil

	case "show":
		id := parser.Positional(1)
		if id == "" {
			return errors.New("usage: aide sessions show <id>")
		}
		conv, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		displayResponse(storage.ExportMarkdown(conv))
		return nil

	case "search":
		query := JoinPositionalArgs(parser, 1)
		if query == "" {
			return errors.New("usage: aide sessions search <query>")
		}
		hits, err := store.SearchMessages(ctx, query)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, hit := range hits {
			fmt.Printf("%s  [%s] %s\n", hit.ConversationID, hit.Role, hit.Snippet)
		}
		return nil

	case "export":
		return exportSession(ctx, store, parser)

	case "delete":
		id := parser.Positional(1)
		if id == "" {
			return errors.New("usage: aide sessions delete <id> --confirm")
		}
		if !parser.BoolFlag("confirm") {
			return errors.New("deletion requires --confirm")
		}
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted conversation %s\n", id)
		return nil

	case "clear":
		if !parser.BoolFlag("confirm") {
			return errors.New("clearing all conversations requires --confirm")
		}
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("All conversations deleted.")
		return nil

	default:
		return fmt.Errorf("unknown sessions subcommand %q (list, show, search, export, delete, clear)", parser.Subcommand())
	}
}

// exportSession writes one conversation as markdown or JSON.
func exportSession(ctx context.Context, store *storage.Store, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return errors.New("usage: aide sessions export <id> [--format md|json] [--output FILE]")
	}

	conv, err := store.Load(ctx, id)
	if err != nil {
		return err
	}

	var out []byte
	switch format := parser.FlagOrDefault("format", "md"); format {
	case "md", "markdown":
		out = []byte(storage.ExportMarkdown(conv))
	case "json":
		if out, err = storage.ExportJSON(conv); err != nil {
			return err
		}
		out = append(out, '\n')
	default:
		return fmt.Errorf("unknown export format %q (md, json)", format)
	}

	if path := parser.Flag("output"); path != "" {
		if err := os.WriteFile(path, out, 0600); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", path)
		return nil
	}
	fmt.Print(string(out))
	return nil
}
