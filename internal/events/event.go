package events

import (
	"time"

	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/GriffinCanCode/podshell/internal/types"
)

// Kind names an event toward the consumer
type Kind string

const (
	KindData           Kind = "data"
	KindExit           Kind = "exit"
	KindSpawnError     Kind = "spawn_error"
	KindContextList    Kind = "context_list"
	KindContextChanged Kind = "context_changed"
	KindError          Kind = "error"
)

// Event is one message toward the consumer. Session events carry a
// SessionID; global events leave it empty.
type Event struct {
	Kind      Kind         `json:"type"`
	SessionID id.SessionID `json:"session_id,omitempty"`

	// Data is raw terminal output; JSON renders it as base64.
	Data []byte `json:"data,omitempty"`

	Exit *ExitInfo `json:"exit,omitempty"`

	Code    types.Code `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`

	Contexts []string `json:"contexts,omitempty"`
	Context  string   `json:"context,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

// ExitInfo describes how a session ended. Requested is set when the exit
// followed an explicit close, which makes the exit event the close ack.
type ExitInfo struct {
	Code      int  `json:"code"`
	Signal    int  `json:"signal"`
	Requested bool `json:"requested"`
}

// Terminal reports whether e ends its session's event stream
func (e Event) Terminal() bool {
	return e.Kind == KindExit || e.Kind == KindSpawnError
}

func now() int64 {
	return time.Now().UnixMilli()
}

// Data builds an output event
func Data(sid id.SessionID, chunk []byte) Event {
	return Event{Kind: KindData, SessionID: sid, Data: chunk, Timestamp: now()}
}

// Exit builds the terminal event for a session that ran
func Exit(sid id.SessionID, code, signal int, requested bool) Event {
	return Event{
		Kind:      KindExit,
		SessionID: sid,
		Exit:      &ExitInfo{Code: code, Signal: signal, Requested: requested},
		Timestamp: now(),
	}
}

// SpawnError builds the terminal event for a session that never started
func SpawnError(sid id.SessionID, err *types.Error) Event {
	return Event{
		Kind:      KindSpawnError,
		SessionID: sid,
		Code:      err.Code,
		Message:   err.Message(),
		Timestamp: now(),
	}
}

// ContextList announces the available contexts and the active one
func ContextList(names []string, current string) Event {
	return Event{Kind: KindContextList, Contexts: names, Context: current, Timestamp: now()}
}

// ContextChanged announces a completed context switch
func ContextChanged(name string) Event {
	return Event{Kind: KindContextChanged, Context: name, Timestamp: now()}
}

// GeneralError reports a failure not tied to a session
func GeneralError(err *types.Error) Event {
	return Event{Kind: KindError, Code: err.Code, Message: err.Error(), Timestamp: now()}
}
