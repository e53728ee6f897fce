// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Development backend command for the aide CLI.
//
// Handles "aide serve": runs the local assistant backend so the TUI, ask,
// calendar, and notion commands have something to talk to during
// development.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/aide-tui/internal/config"
	"github.com/jeranaias/aide-tui/internal/server"
)

// HandleServe runs the development backend until interrupted.
func HandleServe(args Args) error {
	cfg := config.Global()

	srv := server.NewServer(cfg.Server.Addr).
		WithChunkDelay(time.Duration(cfg.Server.ChunkDelayMs) * time.Millisecond)

	if token := os.Getenv("AIDE_TOKEN"); token != "" {
		srv.WithAuth(&server.AuthConfig{Enabled: true, BearerToken: token})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if !args.Quiet {
		fmt.Printf("aide dev server listening on %s (Ctrl-C to stop)\n", cfg.Server.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
