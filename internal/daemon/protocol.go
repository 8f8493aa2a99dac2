package daemon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/emty-pyie/Jane/internal/core"
)

// JSON-RPC style error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeUnavailable    = -32003
	ErrCodeNotFound       = -32004
)

// RPC method names.
const (
	MethodPing      = "ping"
	MethodStatus    = "status"
	MethodClassify  = "classify"
	MethodSubmit    = "submit"
	MethodApprove   = "approve"
	MethodDeny      = "deny"
	MethodState     = "state"
	MethodSubscribe = "subscribe"
)

// RPCRequest is one line-delimited request.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     int             `json:"id"`
}

// RPCResponse answers the request with the same ID.
type RPCResponse struct {
	Result any       `json:"result,omitempty"`
	Error  *RPCError `json:"error,omitempty"`
	ID     int       `json:"id"`
}

// RPCError is a protocol or method error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TextParams carries user text for classify and submit.
type TextParams struct {
	Text string `json:"text"`
}

// StatusResult is returned by the status method.
type StatusResult struct {
	PendingCount  int       `json:"pending_count"`
	Subscribers   int       `json:"subscribers"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	StartedAt     time.Time `json:"started_at"`
	Assistant     bool      `json:"assistant"`
}

// ClassifyResult is returned by the classify method.
type ClassifyResult struct {
	Command core.CommandView `json:"command"`
	Rule    string           `json:"rule"`
}

// Event types pushed to subscribers.
const (
	EventApprovalRequired = "approval_required"
	EventResult           = "result"
	EventDenied           = "denied"
)

// Event is one controller event streamed to subscribers.
type Event struct {
	Type    string             `json:"type"`
	Command core.CommandView   `json:"command"`
	Result  *core.ActionResult `json:"result,omitempty"`
	Time    time.Time          `json:"time"`
}
