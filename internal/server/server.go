// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aide-tui/internal/calendar"
	"github.com/jeranaias/aide-tui/internal/stream"
	"github.com/jeranaias/aide-tui/internal/transport"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// DefaultChunkDelay spaces out streamed content chunks so the client's
	// interim rendering is visible during development.
	DefaultChunkDelay = 30 * time.Millisecond

	// MaxRequestBodySize caps JSON request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxUploadBodySize caps multipart bodies: attachment budget plus headroom.
	MaxUploadBodySize = transport.MaxFiles*transport.MaxFileSize + MaxRequestBodySize

	// MaxMessageCount is the maximum number of history entries accepted.
	MaxMessageCount = 200

	// Version is the dev server version.
	Version = "0.1.0"
)

// validRoles is the set of acceptable history roles.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
}

// ============================================================================
// TYPES
// ============================================================================

// ChatMessage is one history entry in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the JSON chat request body.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// Reply is a fully-formed assistant answer before streaming.
type Reply struct {
	Raw          string
	Cited        string
	HasCitations bool
}

// Responder produces a reply for an incoming request. The last entry in
// messages is the current user message; fileNames lists any attachments.
type Responder func(messages []ChatMessage, fileNames []string) Reply

// ============================================================================
// SERVER
// ============================================================================

// Server is the local development backend.
type Server struct {
	addr   string
	router *http.ServeMux
	server *http.Server

	chunkDelay time.Duration
	respond    Responder
	events     func(date string) []calendar.Event
	created    []calendar.Event
	auth       *AuthConfig

	mu sync.RWMutex
}

// NewServer creates a dev server listening on addr ("" uses the default).
func NewServer(addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		addr:       addr,
		router:     http.NewServeMux(),
		chunkDelay: DefaultChunkDelay,
		respond:    EchoResponder,
		events:     sampleEvents,
		auth:       DefaultAuthConfig(),
	}

	s.setupRoutes()
	return s
}

// WithChunkDelay sets the pause between streamed content chunks.
func (s *Server) WithChunkDelay(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkDelay = d
	return s
}

// WithResponder sets a custom reply generator.
func (s *Server) WithResponder(r Responder) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = r
	return s
}

// WithAuth sets the authentication configuration.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = config
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the fully assembled handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	handler := Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
	)(s.router)

	s.mu.RLock()
	auth := s.auth
	s.mu.RUnlock()
	if auth != nil && auth.Enabled {
		handler = AuthMiddleware(auth)(handler)
	}
	return handler
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/chat/upload", s.handleChatUpload)
	s.router.HandleFunc("GET /api/calendar/events", s.handleCalendarEvents)
	s.router.HandleFunc("POST /api/calendar/events", s.handleCalendarCreate)
	s.router.HandleFunc("DELETE /api/calendar/events/{id}", s.handleCalendarDelete)
	s.router.HandleFunc("GET /api/notion", s.handleNotion)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// ============================================================================
// CHAT HANDLERS
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("invalid chat request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if err := validateMessages(req.Messages); err != nil {
		log.Printf("chat request validation failed: %v", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.streamReply(w, r, req.Messages, nil)
}

// handleChatUpload handles POST /api/chat/upload. The multipart form carries
// the current message, the prior history as JSON, and file attachments.
func (s *Server) handleChatUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBodySize)

	if err := r.ParseMultipartForm(MaxUploadBodySize); err != nil {
		log.Printf("invalid upload form: %v", err)
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	message := r.FormValue("message")

	var history []ChatMessage
	if raw := r.FormValue("chat_history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			log.Printf("invalid chat_history field: %v", err)
			s.writeError(w, http.StatusBadRequest, "invalid chat_history")
			return
		}
	}

	var fileNames []string
	if r.MultipartForm != nil {
		files := r.MultipartForm.File["files"]
		if len(files) > transport.MaxFiles {
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("too many files: maximum is %d", transport.MaxFiles))
			return
		}
		for _, fh := range files {
			if fh.Size > transport.MaxFileSize {
				s.writeError(w, http.StatusBadRequest,
					fmt.Sprintf("file %q exceeds %d bytes", fh.Filename, transport.MaxFileSize))
				return
			}
			fileNames = append(fileNames, fh.Filename)
		}
	}

	messages := append(history, ChatMessage{Role: "user", Content: message})
	if err := validateMessages(messages); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.streamReply(w, r, messages, fileNames)
}

// validateMessages enforces role and size limits on request history.
func validateMessages(messages []ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("request must contain at least one message")
	}
	if len(messages) > MaxMessageCount {
		return fmt.Errorf("too many messages: maximum is %d", MaxMessageCount)
	}
	for i, msg := range messages {
		if !validRoles[msg.Role] {
			return fmt.Errorf("invalid role %q at message %d", msg.Role, i)
		}
	}
	return nil
}

// streamReply writes a reply using the line protocol: content chunks, an
// optional citation marker plus cited line, then the final JSON line.
func (s *Server) streamReply(w http.ResponseWriter, r *http.Request, messages []ChatMessage, fileNames []string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	s.mu.RLock()
	respond := s.respond
	delay := s.chunkDelay
	s.mu.RUnlock()

	reply := respond(messages, fileNames)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	for _, chunk := range splitChunks(reply.Raw) {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprint(w, chunk)
		flusher.Flush()
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	// The final protocol lines need a fresh line to start on.
	if reply.Raw != "" && !strings.HasSuffix(reply.Raw, "\n") {
		fmt.Fprint(w, "\n")
	}

	if reply.HasCitations {
		fmt.Fprintf(w, "%s\n", stream.CitationSentinel)
		fmt.Fprintf(w, "%s\n", reply.Cited)
		flusher.Flush()
	}

	final := stream.FinalResult{
		RawResponse:   reply.Raw,
		CitedResponse: reply.Cited,
		HasCitations:  reply.HasCitations,
	}
	data, err := json.Marshal(final)
	if err != nil {
		log.Printf("failed to encode final result: %v", err)
		return
	}
	fmt.Fprintf(w, "%s\n", data)
	flusher.Flush()
}

// splitChunks breaks text into word-sized pieces for streaming.
func splitChunks(text string) []string {
	var chunks []string
	rest := text
	for rest != "" {
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			chunks = append(chunks, rest)
			break
		}
		chunks = append(chunks, rest[:i+1])
		rest = rest[i+1:]
	}
	return chunks
}

// ============================================================================
// RESPONDERS
// ============================================================================

// EchoResponder is the default reply generator: it echoes the user message
// and attaches citations when asked about sources.
func EchoResponder(messages []ChatMessage, fileNames []string) Reply {
	last := messages[len(messages)-1].Content

	var b strings.Builder
	fmt.Fprintf(&b, "You said: %s", last)
	if len(fileNames) > 0 {
		fmt.Fprintf(&b, "\nReceived %d file(s): %s", len(fileNames), strings.Join(fileNames, ", "))
	}
	raw := b.String()

	if strings.Contains(strings.ToLower(last), "source") {
		return Reply{
			Raw:          raw,
			Cited:        raw + " [1]",
			HasCitations: true,
		}
	}
	return Reply{Raw: raw}
}

// ============================================================================
// CALENDAR AND NOTION HANDLERS
// ============================================================================

// handleCalendarEvents handles GET /api/calendar/events. The day's canned
// events are merged with anything created through the API this run.
func (s *Server) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	s.mu.RLock()
	day := s.events(date)
	for _, ev := range s.created {
		if ev.Date == date {
			day = append(day, ev)
		}
	}
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, map[string][]calendar.Event{
		"events": day,
	})
}

// handleCalendarCreate handles POST /api/calendar/events.
func (s *Server) handleCalendarCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var ev calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if strings.TrimSpace(ev.Description) == "" {
		s.writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	ev.ID = "ev-" + uuid.NewString()[:8]

	s.mu.Lock()
	s.created = append(s.created, ev)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, ev)
}

// handleCalendarDelete handles DELETE /api/calendar/events/{id}. Only events
// created through the API can be removed; the canned samples regenerate.
func (s *Server) handleCalendarDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	found := false
	for i, ev := range s.created {
		if ev.ID == id {
			s.created = append(s.created[:i], s.created[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		s.writeError(w, http.StatusNotFound, "no such event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sampleEvents returns canned events for any requested date.
func sampleEvents(date string) []calendar.Event {
	return []calendar.Event{
		{ID: "ev-standup", Date: date, Time: "09:00", Description: "Standup", Duration: 15},
		{ID: "ev-review", Date: date, Time: "14:00", Description: "Design review", Location: "Room 4", Duration: 60},
	}
}

// handleNotion handles GET /api/notion with the same query contract the real
// backend uses: type=pages|databases with an optional cursor, or pageId for
// a single page.
func (s *Server) handleNotion(w http.ResponseWriter, r *http.Request) {
	if pageID := r.URL.Query().Get("pageId"); pageID != "" {
		s.writeJSON(w, http.StatusOK, samplePage(pageID, "Sample page"))
		return
	}

	switch r.URL.Query().Get("type") {
	case "pages":
		// Two pages split across two cursor steps to exercise pagination.
		if r.URL.Query().Get("cursor") == "" {
			s.writeJSON(w, http.StatusOK, map[string]interface{}{
				"results":     []interface{}{samplePage("page-1", "Weekly notes")},
				"next_cursor": "cursor-2",
				"has_more":    true,
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"results":     []interface{}{samplePage("page-2", "Reading list")},
			"next_cursor": nil,
			"has_more":    false,
		})
	case "databases":
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{
					"id":    "db-1",
					"url":   "https://notion.example/db-1",
					"title": []map[string]string{{"plain_text": "Tasks"}},
				},
			},
			"next_cursor": nil,
			"has_more":    false,
		})
	default:
		s.writeError(w, http.StatusBadRequest, "type must be pages or databases")
	}
}

func samplePage(id, title string) map[string]interface{} {
	return map[string]interface{}{
		"id":  id,
		"url": "https://notion.example/" + id,
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": []map[string]string{{"plain_text": title}},
			},
		},
	}
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: replies stream for as long as the client reads.
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("dev server listening on %s (version %s)", s.addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response using the backend's error shape.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
