// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/aide-tui/internal/model"
	"github.com/jeranaias/aide-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// summaryMaxRunes bounds the auto-generated conversation summary.
	summaryMaxRunes = 50

	// previewMaxRunes bounds the last-message preview shown in listings.
	previewMaxRunes = 80
)

// =============================================================================
// ERRORS
// =============================================================================

// ConversationError wraps storage failures with the conversation ID involved.
type ConversationError struct {
	ID  string
	Op  string
	Err error
}

func (e *ConversationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *ConversationError) Unwrap() error { return e.Err }

// ErrConversationNotFound indicates the requested conversation does not exist.
var ErrConversationNotFound = errors.New("conversation not found")

// IsNotFound reports whether err indicates a missing conversation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound)
}

// =============================================================================
// TYPES
// =============================================================================

// StoredMessage is one persisted chat message.
type StoredMessage struct {
	Role         model.Role `json:"role"`
	Content      string     `json:"content"`
	CitedContent string     `json:"cited_content,omitempty"`
	HasCitations bool       `json:"has_citations,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// StoredConversation is a full persisted conversation.
type StoredConversation struct {
	ID        string          `json:"id"`
	Summary   string          `json:"summary"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ConversationMeta is the listing view of a conversation: everything except
// the message bodies.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SearchHit is one message matched by SearchMessages.
type SearchHit struct {
	ConversationID string     `json:"conversation_id"`
	Summary        string     `json:"summary"`
	Role           model.Role `json:"role"`
	Snippet        string     `json:"snippet"`
	Timestamp      time.Time  `json:"timestamp"`
}

// MessagesFromModel converts live chat messages into their stored form.
// Loading placeholders are skipped; a crash mid-stream must not persist a
// half-filled assistant turn.
func MessagesFromModel(msgs []*model.Message) []StoredMessage {
	out := make([]StoredMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.IsLoading {
			continue
		}
		out = append(out, StoredMessage{
			Role:         m.Role,
			Content:      m.Text,
			CitedContent: m.CitedText,
			HasCitations: m.IsCited,
			Timestamp:    m.Timestamp,
		})
	}
	return out
}

// =============================================================================
// STORE
// =============================================================================

// Store is a SQLite-backed conversation archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the conversation database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// DefaultPath returns ~/.aide/conversations.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aide", "conversations.db"), nil
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	summary    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	cited_content   TEXT NOT NULL DEFAULT '',
	has_citations   INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, position);
CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save persists a conversation, replacing its messages wholesale. When id is
// empty a new conversation is created and its ID returned. The summary is
// derived from the first user message.
func (s *Store) Save(ctx context.Context, id string, messages []StoredMessage) (string, error) {
	now := time.Now()
	fresh := id == ""
	if fresh {
		id = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &ConversationError{ID: id, Op: "save", Err: err}
	}
	defer tx.Rollback()

	if fresh {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO conversations (id, summary, created_at, updated_at) VALUES (?, ?, ?, ?)",
			id, summarize(messages), now.UnixMilli(), now.UnixMilli())
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			"UPDATE conversations SET summary = ?, updated_at = ? WHERE id = ?",
			summarize(messages), now.UnixMilli(), id)
		if err == nil {
			n, _ := res.RowsAffected()
			if n == 0 {
				return "", &ConversationError{ID: id, Op: "save", Err: ErrConversationNotFound}
			}
		}
	}
	if err != nil {
		return "", &ConversationError{ID: id, Op: "save", Err: err}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return "", &ConversationError{ID: id, Op: "save", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (conversation_id, position, role, content, cited_content, has_citations, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return "", &ConversationError{ID: id, Op: "save", Err: err}
	}
	defer stmt.Close()

	for i, m := range messages {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = now
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(m.Role), m.Content,
			m.CitedContent, boolToInt(m.HasCitations), ts.UnixMilli()); err != nil {
			return "", &ConversationError{ID: id, Op: "save", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", &ConversationError{ID: id, Op: "save", Err: err}
	}
	return id, nil
}

// Load fetches a full conversation by ID.
func (s *Store) Load(ctx context.Context, id string) (*StoredConversation, error) {
	conv := &StoredConversation{ID: id}

	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT summary, created_at, updated_at FROM conversations WHERE id = ?", id).
		Scan(&conv.Summary, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ConversationError{ID: id, Op: "load", Err: ErrConversationNotFound}
	}
	if err != nil {
		return nil, &ConversationError{ID: id, Op: "load", Err: err}
	}
	conv.CreatedAt = time.UnixMilli(created)
	conv.UpdatedAt = time.UnixMilli(updated)

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, cited_content, has_citations, created_at FROM messages WHERE conversation_id = ? ORDER BY position", id)
	if err != nil {
		return nil, &ConversationError{ID: id, Op: "load", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var m StoredMessage
		var role string
		var cited int
		var ts int64
		if err := rows.Scan(&role, &m.Content, &m.CitedContent, &cited, &ts); err != nil {
			return nil, &ConversationError{ID: id, Op: "load", Err: err}
		}
		m.Role = model.Role(role)
		m.HasCitations = cited != 0
		m.Timestamp = time.UnixMilli(ts)
		conv.Messages = append(conv.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &ConversationError{ID: id, Op: "load", Err: err}
	}
	return conv, nil
}

// =============================================================================
// LISTING AND SEARCH
// =============================================================================

// List returns conversation metadata, most recently updated first.
func (s *Store) List(ctx context.Context) ([]ConversationMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.summary, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
			COALESCE((SELECT m.content FROM messages m
				WHERE m.conversation_id = c.id ORDER BY m.position DESC LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, &ConversationError{Op: "list", Err: err}
	}
	defer rows.Close()

	var metas []ConversationMeta
	for rows.Next() {
		var meta ConversationMeta
		var updated int64
		var preview string
		if err := rows.Scan(&meta.ID, &meta.Summary, &updated, &meta.MessageCount, &preview); err != nil {
			return nil, &ConversationError{Op: "list", Err: err}
		}
		meta.UpdatedAt = time.UnixMilli(updated)
		meta.Preview = util.TruncateRunes(collapseWhitespace(preview), previewMaxRunes)
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, &ConversationError{Op: "list", Err: err}
	}
	return metas, nil
}

// SearchMessages finds messages whose content contains the query,
// case-insensitively, newest conversation first.
func (s *Store) SearchMessages(ctx context.Context, query string) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.conversation_id, c.summary, m.role, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.content LIKE ? ESCAPE '\'
		ORDER BY c.updated_at DESC, m.position`,
		"%"+escapeLike(query)+"%")
	if err != nil {
		return nil, &ConversationError{Op: "search", Err: err}
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		var role, content string
		var ts int64
		if err := rows.Scan(&hit.ConversationID, &hit.Summary, &role, &content, &ts); err != nil {
			return nil, &ConversationError{Op: "search", Err: err}
		}
		hit.Role = model.Role(role)
		hit.Snippet = util.TruncateRunes(collapseWhitespace(content), previewMaxRunes)
		hit.Timestamp = time.UnixMilli(ts)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, &ConversationError{Op: "search", Err: err}
	}
	return hits, nil
}

// =============================================================================
// DELETION AND RETENTION
// =============================================================================

// Delete removes one conversation and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return &ConversationError{ID: id, Op: "delete", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &ConversationError{ID: id, Op: "delete", Err: ErrConversationNotFound}
	}
	return nil
}

// Clear removes all conversations.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return &ConversationError{Op: "clear", Err: err}
	}
	return nil
}

// Prune deletes conversations not updated within the retention window.
// retentionDays <= 0 disables pruning. Returns the number removed.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, &ConversationError{Op: "prune", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// summarize derives a short summary from the first user message.
func summarize(messages []StoredMessage) string {
	for _, m := range messages {
		if m.Role == model.RoleUser && strings.TrimSpace(m.Content) != "" {
			return util.TruncateRunes(collapseWhitespace(m.Content), summaryMaxRunes)
		}
	}
	return "(empty conversation)"
}

// collapseWhitespace flattens newlines and runs of spaces for one-line views.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// escapeLike escapes LIKE metacharacters in user queries.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// FORMATTING AND EXPORT
// =============================================================================

// FormatSessionList renders conversation metadata as an aligned text table.
func FormatSessionList(metas []ConversationMeta) string {
	if len(metas) == 0 {
		return "No saved conversations.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-36s  %-19s  %5s  %s\n", "ID", "UPDATED", "MSGS", "SUMMARY"))
	for _, m := range metas {
		b.WriteString(fmt.Sprintf("%-36s  %-19s  %5d  %s\n",
			m.ID,
			m.UpdatedAt.Format("2006-01-02 15:04:05"),
			m.MessageCount,
			m.Summary))
	}
	return b.String()
}

// ExportMarkdown renders a conversation as a Markdown transcript.
func ExportMarkdown(conv *StoredConversation) string {
	var b strings.Builder
	b.WriteString("# " + conv.Summary + "\n\n")
	b.WriteString("_Exported " + time.Now().Format("2006-01-02 15:04") + "_\n\n")

	for _, m := range conv.Messages {
		b.WriteString("## " + m.Role.DisplayName() + "\n\n")
		text := m.Content
		if m.HasCitations && m.CitedContent != "" {
			text = m.CitedContent
		}
		b.WriteString(text + "\n\n")
	}
	return b.String()
}

// ExportJSON renders a conversation as indented JSON.
func ExportJSON(conv *StoredConversation) ([]byte, error) {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation: %w", err)
	}
	return data, nil
}
