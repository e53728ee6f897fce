// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the aide terminal assistant:
// crash-safe file writes and rune-aware string truncation.
package util
