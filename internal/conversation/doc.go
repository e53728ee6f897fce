// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the chat turn lifecycle.
//
// A turn runs Idle -> Sending -> Streaming -> Settled and back to Idle. At
// most one turn is in flight; a submit while busy is a logged no-op. The
// controller appends the user message and a loading placeholder together,
// folds stream frames into the placeholder as they arrive, and settles the
// placeholder exactly once - from the final result frame when one arrives,
// from the accumulated chunks otherwise, or with a fixed error text when the
// request fails.
package conversation
