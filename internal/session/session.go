package session

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/GriffinCanCode/podshell/internal/terminal"
	"github.com/GriffinCanCode/podshell/internal/types"
)

// Session is one interactive shell inside one pod. The registry owns it from
// create until its exit has been published.
type Session struct {
	id        id.SessionID
	namespace string
	pod       string
	shell     string
	context   string
	createdAt time.Time

	scrollback *terminal.Buffer

	mu             sync.Mutex
	state          types.SessionState
	geometry       types.Geometry
	proc           terminal.Process
	closeRequested bool

	// done is closed once the session has left the registry
	done chan struct{}
}

func newSession(sid id.SessionID, req CreateRequest, contextName string, scrollback int) *Session {
	return &Session{
		id:         sid,
		namespace:  req.Namespace,
		pod:        req.Pod,
		shell:      req.Shell,
		context:    contextName,
		createdAt:  time.Now(),
		scrollback: terminal.NewBuffer(scrollback),
		state:      types.StateStarting,
		geometry:   req.Geometry.OrDefault(),
		done:       make(chan struct{}),
	}
}

// ID returns the session identifier
func (s *Session) ID() id.SessionID {
	return s.id
}

// Done is closed after the session's terminal event has been published
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a snapshot of the session
func (s *Session) Info() types.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := types.SessionInfo{
		ID:        s.id.String(),
		Namespace: s.namespace,
		Pod:       s.pod,
		Shell:     s.shell,
		Context:   s.context,
		Geometry:  s.geometry,
		State:     s.state,
		CreatedAt: s.createdAt,
	}
	if s.proc != nil {
		info.Pid = s.proc.Pid()
	}
	return info
}

// running returns the process if the session accepts input
func (s *Session) running() (terminal.Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.StateRunning || s.proc == nil {
		return nil, false
	}
	return s.proc, true
}

// started records the spawned process. It reports whether a close arrived
// while the spawn was in flight.
func (s *Session) started(proc terminal.Process) (closePending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proc = proc
	if s.state == types.StateStarting {
		s.state = types.StateRunning
	}
	return s.closeRequested
}

// requestClose marks the session as closing and returns the process to kill,
// if one exists yet
func (s *Session) requestClose() (terminal.Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == types.StateClosed {
		return nil, false
	}
	s.closeRequested = true
	return s.proc, true
}

// finish moves the session to CLOSED and reports whether a close was requested
func (s *Session) finish() (requested bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = types.StateClosed
	return s.closeRequested
}

func (s *Session) resize(g types.Geometry) (terminal.Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != types.StateRunning || s.proc == nil {
		return nil, false
	}
	s.geometry = g
	return s.proc, true
}
