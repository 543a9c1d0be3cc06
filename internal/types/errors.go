package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure reported to the consumer
type Code string

const (
	CodeNoContext        Code = "no_context"
	CodeDuplicateSession Code = "duplicate_session"
	CodeSpawnFailed      Code = "spawn_failed"
	CodeContextSwitch    Code = "context_switch_failed"
	CodeClusterAPI       Code = "cluster_api_failed"
	CodeInvalidRequest   Code = "invalid_request"
	CodeNotFound         Code = "not_found"
	CodeKubeconfig       Code = "kubeconfig_load_failed"
)

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrNoContext        = &Error{Code: CodeNoContext}
	ErrDuplicateSession = &Error{Code: CodeDuplicateSession}
	ErrSpawn            = &Error{Code: CodeSpawnFailed}
	ErrContextSwitch    = &Error{Code: CodeContextSwitch}
	ErrClusterAPI       = &Error{Code: CodeClusterAPI}
	ErrInvalidRequest   = &Error{Code: CodeInvalidRequest}
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrKubeconfig       = &Error{Code: CodeKubeconfig}
)

// Error is a recoverable failure scoped to one session or context.
// Subject is the session or context identifier the error concerns.
type Error struct {
	Code    Code   `json:"code"`
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Subject != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Subject)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus maps the code onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNoContext:
		return http.StatusPreconditionFailed
	case CodeDuplicateSession:
		return http.StatusConflict
	case CodeSpawnFailed, CodeClusterAPI:
		return http.StatusBadGateway
	case CodeContextSwitch, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeKubeconfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message is the human-readable part without the code prefix.
func (e *Error) Message() string {
	if e.Err == nil {
		return e.Reason
	}
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

// MarshalJSON renders the code, subject and full message.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    Code   `json:"code"`
		Subject string `json:"subject,omitempty"`
		Message string `json:"message"`
	}{e.Code, e.Subject, e.Message()})
}

// NoContext reports that no cluster context is active.
func NoContext(subject string) *Error {
	return &Error{
		Code:    CodeNoContext,
		Subject: subject,
		Reason:  "no context selected or kubeconfig not loaded",
	}
}

// DuplicateSession reports a create for an identifier that is already live.
func DuplicateSession(sessionID string) *Error {
	return &Error{
		Code:    CodeDuplicateSession,
		Subject: sessionID,
		Reason:  "a session for this pod is already open",
	}
}

// SpawnFailed wraps an OS or exec failure that happened before any output.
func SpawnFailed(sessionID string, err error) *Error {
	return &Error{
		Code:    CodeSpawnFailed,
		Subject: sessionID,
		Reason:  "failed to start exec process",
		Err:     err,
	}
}

// ContextSwitchFailed reports an unknown or unusable context.
func ContextSwitchFailed(contextName string, err error) *Error {
	return &Error{
		Code:    CodeContextSwitch,
		Subject: contextName,
		Reason:  "error setting context",
		Err:     err,
	}
}

// ClusterAPIFailed wraps a failed call against the cluster API.
func ClusterAPIFailed(contextName string, err error) *Error {
	return &Error{
		Code:    CodeClusterAPI,
		Subject: contextName,
		Reason:  "cluster API request failed",
		Err:     err,
	}
}

// InvalidRequest reports a malformed command.
func InvalidRequest(reason string) *Error {
	return &Error{
		Code:   CodeInvalidRequest,
		Reason: reason,
	}
}

// NotFound reports an unknown session.
func NotFound(sessionID string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Subject: sessionID,
		Reason:  "session not found",
	}
}

// KubeconfigFailed reports that kubeconfig could not be read at startup.
func KubeconfigFailed(path string, err error) *Error {
	return &Error{
		Code:    CodeKubeconfig,
		Subject: path,
		Reason:  "error loading kubeconfig",
		Err:     err,
	}
}

// AsError converts any error into an *Error, classifying unknown
// errors as invalid requests.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInvalidRequest, Reason: err.Error()}
}
