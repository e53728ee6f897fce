// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// client.go - Backend client construction shared by the CLI commands.

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/aide-tui/internal/auth"
	"github.com/jeranaias/aide-tui/internal/config"
	"github.com/jeranaias/aide-tui/internal/transport"
)

// BackendClient builds a transport client from the active configuration and
// the resolved bearer token.
func BackendClient() *transport.Client {
	cfg := config.Global()

	return transport.NewClientWithConfig(&transport.ClientConfig{
		BaseURL:       cfg.Backend.BaseURL,
		ChatPath:      cfg.Backend.ChatPath,
		UploadPath:    cfg.Backend.UploadPath,
		DialTimeout:   time.Duration(cfg.Backend.DialTimeoutSecs) * time.Second,
		StreamTimeout: time.Duration(cfg.Backend.RequestTimeoutSecs) * time.Second,
		AuthToken:     ResolveToken(),
	})
}

// ResolveToken returns the bearer token for backend requests. The AIDE_TOKEN
// environment variable wins; otherwise the sealed token store is unlocked
// interactively. Returns "" when no token is available - the backend decides
// whether that matters.
func ResolveToken() string {
	if token := os.Getenv("AIDE_TOKEN"); token != "" {
		return token
	}

	store, err := auth.DefaultStore()
	if err != nil || !store.HasSession() {
		return ""
	}
	if !IsTTY() {
		fmt.Fprintln(os.Stderr, "Warning: sealed token present but stdin is not a terminal; set AIDE_TOKEN")
		return ""
	}

	passphrase, err := promptSecret("Passphrase: ")
	if err != nil {
		return ""
	}
	token, err := store.Load(passphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not unlock token store: %v\n", err)
		return ""
	}
	return token
}
