package handler

import (
	"encoding/json"
	"time"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// UpdateRequest is the request body for POST /api/update.
type UpdateRequest struct {
	Updates []domain.Update `json:"updates"`
}

// ConflictView is one rejected update as reported to clients.
type ConflictView struct {
	Row             int             `json:"dbrow"`
	Column          string          `json:"dbcol"`
	Reason          string          `json:"reason"`
	ExpectedVersion int64           `json:"expected_version"`
	ProposedVersion int64           `json:"proposed_version"`
	CurrentVersion  int64           `json:"current_version"`
	CurrentValue    json.RawMessage `json:"current_value,omitempty"`
}

// UpdateResponse is the response body for POST /api/update.
type UpdateResponse struct {
	Success   bool           `json:"success"`
	Accepted  int            `json:"accepted"`
	Conflicts []ConflictView `json:"conflicts"`
	TokenUsed string         `json:"token_used"`
}

// PushRequest is the request body for POST /api/push.
type PushRequest struct {
	Entries []domain.Record `json:"entries"`
}

// ColumnRequest is the request body for POST /api/columns.
type ColumnRequest struct {
	Name         string          `json:"name"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	LastModified int64           `json:"last_modified"`
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func conflictView(c domain.Conflict) ConflictView {
	return ConflictView{
		Row:             c.Update.Row,
		Column:          c.Update.Column,
		Reason:          string(c.Reason),
		ExpectedVersion: c.Update.ExpectedVersion,
		ProposedVersion: c.Update.Value.A,
		CurrentVersion:  c.CurrentVersion,
		CurrentValue:    c.CurrentValue,
	}
}
