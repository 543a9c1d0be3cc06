package ws

import (
	"github.com/GriffinCanCode/podshell/internal/types"
)

// Command types (client → server)
const (
	CmdPing          = "ping"
	CmdListContexts  = "list_contexts"
	CmdSwitchContext = "switch_context"
	CmdListPods      = "list_pods"
	CmdCreateSession = "create_session"
	CmdInput         = "input"
	CmdResize        = "resize"
	CmdCloseSession  = "close_session"
)

// Frame types (server → client) not covered by events.Kind
const (
	FrameResult = "result"
	FramePong   = "pong"
)

// Command is one inbound frame. Fields are used according to Type.
type Command struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	// switch_context
	Context string `json:"context,omitempty"`

	// list_pods, create_session
	Namespace string `json:"namespace,omitempty"`
	Pod       string `json:"pod,omitempty"`
	Shell     string `json:"shell,omitempty"`

	// input, resize, close_session
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Cols      int    `json:"cols,omitempty"`
	Rows      int    `json:"rows,omitempty"`
}

func (c Command) geometry() types.Geometry {
	return types.Geometry{Cols: c.Cols, Rows: c.Rows}
}

// label is the metrics label for the command type
func (c Command) label() string {
	switch c.Type {
	case CmdPing, CmdListContexts, CmdSwitchContext, CmdListPods,
		CmdCreateSession, CmdInput, CmdResize, CmdCloseSession:
		return c.Type
	}
	return "unknown"
}

// isRequest reports whether the command expects a result frame
func (c Command) isRequest() bool {
	switch c.Type {
	case CmdListContexts, CmdSwitchContext, CmdListPods, CmdCreateSession:
		return true
	}
	return false
}

// Result answers a request command
type Result struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id"`
	OK        bool         `json:"ok"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *types.Error `json:"error,omitempty"`
}

// Pong answers a ping
type Pong struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func success(requestID string, data interface{}) Result {
	return Result{Type: FrameResult, RequestID: requestID, OK: true, Data: data}
}

func failure(requestID string, err error) Result {
	return Result{Type: FrameResult, RequestID: requestID, Error: types.AsError(err)}
}
