// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice adapts a continuous speech-to-text recognizer to the chat
// submit path.
//
// The adapter tracks two booleans separately: whether the user wants
// listening on, and whether a recognition session is actually running. When
// the session dies while listening is still wanted, the adapter restarts it
// after a short fixed delay, with at most one restart in flight and a rate
// cap against tight restart loops. Final transcripts are normalized and
// forwarded directly to submit; interim transcripts are display-only.
//
// CommandRecognizer is the stock Recognizer: it runs an external
// speech-to-text program and reads transcripts line by line from its stdout.
package voice
