// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local development backend speaking the assistant
// wire protocol.
//
// Endpoints:
//   - POST /api/chat            - JSON chat request, streamed line-protocol reply
//   - POST /api/chat/upload     - multipart chat request with file attachments
//   - GET  /api/calendar/events - calendar events for a date
//   - GET  /api/notion          - Notion workspace pages and databases
//   - GET  /health              - health check
//
// The reply stream is plain text: content chunks, an optional
// __CITATIONS_START__ marker followed by one cited line, then a final JSON
// summary line. It exists so the TUI can be developed and tested without the
// real assistant backend.
package server
