// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handler for the aide CLI.
//
// Handles "aide config": show, get, set, path, and keys over the TOML
// configuration file.

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/aide-tui/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)
	cfg := config.Global()

	switch parser.Subcommand() {
	case "", "show":
		fmt.Print(cfg.String())
		return nil

	case "get":
		key := parser.Positional(1)
		if key == "" {
			return errors.New("usage: aide config get <key>")
		}
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Printf("%v\n", value)
		return nil

	case "set":
		key := parser.Positional(1)
		value := parser.Positional(2)
		if key == "" || value == "" {
			return errors.New("usage: aide config set <key> <value>")
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("rejected: %w", err)
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", key, value)
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "keys":
		for _, key := range config.GetAllKeys() {
			fmt.Println(key)
		}
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (show, get, set, path, keys)", parser.Subcommand())
	}
}
