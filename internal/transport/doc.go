// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport issues chat requests to the assistant backend and hands
// back the raw response byte stream.
//
// A plain message is a single JSON POST to the chat endpoint; a message with
// attachments is a multipart POST to the upload endpoint. File constraints
// (count and per-file size) are enforced client-side before any network call.
// The package never touches conversation state.
package transport
