// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// calendar_cmd.go - Calendar command handler for the aide CLI.
//
// Handles "aide calendar": day listings (default today), plus add and
// delete subcommands against the backend's calendar endpoints.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/aide-tui/internal/calendar"
	"github.com/jeranaias/aide-tui/internal/config"
)

// HandleCalendar dispatches the calendar subcommands.
func HandleCalendar(args Args) error {
	parser := NewArgParser(args.Raw)
	client := calendar.NewClient(config.Global().Backend.BaseURL)

	switch parser.Positional(0) {
	case "add":
		return calendarAdd(client, parser)
	case "delete", "rm":
		return calendarDelete(client, parser)
	default:
		return calendarList(client, parser, args)
	}
}

// calendarList prints the events for today or a given date.
func calendarList(client *calendar.Client, parser *ArgParser, args Args) error {
	day := time.Now()
	if arg := parser.Positional(0); arg != "" {
		parsed, err := time.Parse("2006-01-02", arg)
		if err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", arg)
		}
		day = parsed
	}

	events, err := client.EventsForDate(context.Background(), day)
	if err != nil {
		return err
	}

	if args.JSON {
		out, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(events) == 0 {
		fmt.Printf("No events on %s.\n", day.Format("2006-01-02"))
		return nil
	}

	fmt.Printf("Events on %s:\n", day.Format("2006-01-02"))
	for _, ev := range events {
		line := fmt.Sprintf("  %-7s %s", ev.Time, ev.Description)
		if ev.Location != "" {
			line += " (" + ev.Location + ")"
		}
		if ev.Duration > 0 {
			line += fmt.Sprintf(" [%dm]", ev.Duration)
		}
		fmt.Println(line)
	}
	return nil
}

// calendarAdd creates an event from flags and the positional description.
func calendarAdd(client *calendar.Client, parser *ArgParser) error {
	description := JoinPositionalArgs(parser, 1)
	if description == "" {
		return fmt.Errorf("usage: aide calendar add \"description\" [--date YYYY-MM-DD] [--time HH:MM] [--duration MIN] [--location WHERE]")
	}

	date := parser.FlagOrDefault("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}

	ev := calendar.Event{
		Date:        date,
		Time:        parser.Flag("time"),
		Description: description,
		Location:    parser.Flag("location"),
		Duration:    parser.FlagIntOrDefault("duration", 0),
	}

	created, err := client.CreateEvent(context.Background(), ev)
	if err != nil {
		return err
	}

	fmt.Printf("Created event %s on %s: %s\n", created.ID, created.Date, created.Description)
	return nil
}

// calendarDelete removes one event by ID.
func calendarDelete(client *calendar.Client, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return fmt.Errorf("usage: aide calendar delete <event-id>")
	}

	if err := client.DeleteEvent(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("Deleted event %s.\n", id)
	return nil
}
