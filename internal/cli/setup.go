// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run wizard for the aide CLI.
//
// Handles "aide setup": collects the backend URL, seals the bearer token
// with a passphrase, and writes the initial configuration file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/aide-tui/internal/auth"
	"github.com/jeranaias/aide-tui/internal/config"
)

// HandleSetup runs the interactive first-run wizard.
func HandleSetup(args Args) error {
	if !IsTTY() {
		return errors.New("aide setup needs an interactive terminal")
	}

	fmt.Println("aide setup")
	fmt.Println()

	cfg := config.Global()
	reader := bufio.NewReader(os.Stdin)

	// Backend URL
	fmt.Printf("Backend URL [%s]: ", cfg.Backend.BaseURL)
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	if url := strings.TrimSpace(line); url != "" {
		cfg.Backend.BaseURL = url
	}

	// Bearer token, sealed with a passphrase. Optional: local dev servers
	// usually run without auth.
	token, err := promptSecret("Backend token (empty to skip): ")
	if err != nil {
		return err
	}
	if token != "" {
		passphrase, err := promptSecret("Passphrase to seal the token: ")
		if err != nil {
			return err
		}
		confirm, err := promptSecret("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}
		if passphrase == "" {
			return errors.New("passphrase must not be empty")
		}

		store, err := auth.DefaultStore()
		if err != nil {
			return err
		}
		if err := store.Save(token, passphrase); err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		fmt.Println("Token sealed.")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	path, _ := config.ConfigPath()
	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Run `aide` to start chatting, or `aide serve` for a local dev backend.")
	return nil
}
