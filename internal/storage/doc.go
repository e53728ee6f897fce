// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation history in a local SQLite database.
//
// Each saved conversation holds the full message list plus a short summary
// derived from the first user message. The store supports listing (most
// recent first), full-text-ish LIKE search over message bodies, deletion,
// retention pruning, and Markdown/JSON export.
package storage
