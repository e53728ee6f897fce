// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/jeranaias/aide-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the assistant backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeEmptyBody
)

// Sentinel errors for easy checking.
var (
	ErrTimeout   = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrEmptyBody = &ClientError{Type: ErrTypeEmptyBody, Message: "response has no streamable body"}
)

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsValidation checks if an error is a client-side attachment rejection.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// errorBody is the JSON shape the backend uses for error responses.
// FastAPI-style backends use "detail"; others use "error".
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the assistant backend base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// ChatPath is the streaming chat endpoint (default: /api/chat)
	ChatPath string

	// UploadPath is the multipart chat endpoint (default: /api/chat/upload)
	UploadPath string

	// DialTimeout bounds connection establishment (default: 10s)
	DialTimeout time.Duration

	// StreamTimeout bounds the whole request including body consumption
	// (default: 5m, 0 disables). The backend protocol has no termination
	// sentinel beyond EOF, so an explicit ceiling replaces the unbounded wait.
	StreamTimeout time.Duration

	// AuthToken, when set, is sent as a bearer token.
	AuthToken string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       "http://127.0.0.1:8000",
		ChatPath:      "/api/chat",
		UploadPath:    "/api/chat/upload",
		DialTimeout:   10 * time.Second,
		StreamTimeout: 5 * time.Minute,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends chat requests to the assistant backend.
//
// Send and SendWithFiles return the raw response body for the stream
// demultiplexer to consume. Closing the returned body releases the request's
// resources; callers must always close it.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.ChatPath == "" {
		config.ChatPath = "/api/chat"
	}
	if config.UploadPath == "" {
		config.UploadPath = "/api/chat/upload"
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 10 * time.Second
	}

	// No overall http.Client timeout: it would cut off long streams. The
	// dial timeout bounds connection setup and StreamTimeout (via context)
	// bounds the full request.
	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: config.DialTimeout,
				}).DialContext,
			},
		},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// =============================================================================
// SEND OPERATIONS
// =============================================================================

// Send posts the history plus the new user message as JSON to the chat
// endpoint and returns the response byte stream.
func (c *Client) Send(ctx context.Context, message string, history []model.ChatHistoryEntry) (io.ReadCloser, error) {
	reqBody := ChatRequest{
		Messages: append(append([]model.ChatHistoryEntry{}, history...),
			model.ChatHistoryEntry{Role: model.RoleUser, Content: message}),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	return c.post(ctx, c.config.BaseURL+c.config.ChatPath, "application/json", bytes.NewReader(body))
}

// SendWithFiles posts the message, serialized history and attachments as
// multipart form data to the upload endpoint. Attachment constraints are
// checked before any network call.
func (c *Client) SendWithFiles(ctx context.Context, message string, history []model.ChatHistoryEntry, files []FileAttachment) (io.ReadCloser, error) {
	if len(files) == 0 {
		return c.Send(ctx, message, history)
	}
	if err := ValidateFiles(files); err != nil {
		return nil, err
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal chat history", Cause: err}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("message", message); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}
	if err := w.WriteField("chat_history", string(historyJSON)); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
		}
	}
	if err := w.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}

	return c.post(ctx, c.config.BaseURL+c.config.UploadPath, w.FormDataContentType(), &buf)
}

// =============================================================================
// REQUEST EXECUTION
// =============================================================================

// streamBody ties the request's cancel function to the body so that closing
// the stream releases the connection.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// post issues the request and returns the streaming body. Non-2xx responses
// and bodiless responses are both terminal for the request.
func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) (io.ReadCloser, error) {
	cancel := context.CancelFunc(func() {})
	if c.config.StreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.config.StreamTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		cancel()
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", contentType)
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		msg := "chat request failed: " + resp.Status
		var eb errorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&eb); err == nil {
			if eb.Error != "" {
				msg = eb.Error
			} else if eb.Detail != "" {
				msg = eb.Detail
			}
		}
		return nil, &ClientError{Type: ErrTypeStatus, Message: msg}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		cancel()
		return nil, ErrEmptyBody
	}

	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}
