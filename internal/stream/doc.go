// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream demultiplexes the assistant's chat response byte stream
// into typed frames.
//
// The wire protocol is line-oriented UTF-8 text. Most lines are plain
// content. A line equal to the citation sentinel switches the very next line
// into a cited chunk (an annotated restatement of the whole answer, not a
// delta). A JSON line carrying a "raw_response" key is the final result
// frame. Network reads may split lines arbitrarily, so the demultiplexer
// buffers incomplete trailing segments across reads and flushes whatever
// remains when the stream ends.
package stream
