// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the aide command line: argument parsing, command
// dispatch, and the handlers for every non-TUI command (ask, chat, serve,
// sessions, config, setup, calendar, notion).
package cli
