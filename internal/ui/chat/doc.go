// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view: a scrollable message
// viewport, a text input, and a status bar, driven by the conversation
// controller. Voice input, when configured, feeds the same submit path
// as the keyboard.
package chat
