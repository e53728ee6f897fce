// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// notion_cmd.go - Notion command handler for the aide CLI.
//
// Handles "aide notion": lists pages or databases through the backend's
// Notion proxy, following the opaque pagination cursor until exhausted.

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/aide-tui/internal/config"
	"github.com/jeranaias/aide-tui/internal/notion"
)

// maxNotionPages caps cursor following so a misbehaving backend cannot loop
// the CLI forever.
const maxNotionPages = 50

// HandleNotion dispatches the notion subcommands.
func HandleNotion(args Args) error {
	parser := NewArgParser(args.Raw)
	client := notion.NewClient(config.Global().Backend.BaseURL)
	ctx := context.Background()

	switch parser.Subcommand() {
	case "", "pages":
		return listNotionPages(ctx, client)

	case "databases", "dbs":
		return listNotionDatabases(ctx, client)

	case "page":
		id := parser.Positional(1)
		if id == "" {
			return errors.New("usage: aide notion page <id>")
		}
		page, err := client.PageByID(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n  id: %s\n  url: %s\n", page.Title(), page.ID, page.URL)
		return nil

	default:
		return fmt.Errorf("unknown notion subcommand %q (pages, databases, page)", parser.Subcommand())
	}
}

// listNotionPages prints every page, following the cursor.
func listNotionPages(ctx context.Context, client *notion.Client) error {
	cursor := ""
	total := 0
	for i := 0; i < maxNotionPages; i++ {
		pages, next, err := client.Pages(ctx, cursor)
		if err != nil {
			return err
		}
		for _, p := range pages {
			fmt.Printf("%-36s %s\n", p.ID, p.Title())
			total++
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if total == 0 {
		fmt.Println("No pages.")
	}
	return nil
}

// listNotionDatabases prints every database, following the cursor.
func listNotionDatabases(ctx context.Context, client *notion.Client) error {
	cursor := ""
	total := 0
	for i := 0; i < maxNotionPages; i++ {
		dbs, next, err := client.Databases(ctx, cursor)
		if err != nil {
			return err
		}
		for _, d := range dbs {
			fmt.Printf("%-36s %s\n", d.ID, d.Title())
			total++
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if total == 0 {
		fmt.Println("No databases.")
	}
	return nil
}
