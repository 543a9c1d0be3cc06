package terminal

import (
	"os"
	"syscall"

	"github.com/GriffinCanCode/podshell/internal/types"
)

// Spawner starts interactive subprocesses
type Spawner interface {
	Spawn(opts SpawnOptions) (Process, error)
}

// Process is a handle to one running subprocess
type Process interface {
	Pid() int
	// Write queues bytes for the subprocess's input. Fire-and-forget.
	Write(data []byte)
	// Resize updates the terminal geometry. No-op once the process has exited.
	Resize(g types.Geometry)
	// Kill forcibly terminates the process. OnExit still fires.
	Kill()
	// Done is closed after OnExit has returned.
	Done() <-chan struct{}
}

// SpawnOptions configures a subprocess
type SpawnOptions struct {
	Command  string
	Args     []string
	Geometry types.Geometry
	Dir      string
	// Env replaces the inherited environment when non-nil.
	Env []string

	OnData func(chunk []byte)
	OnExit func(status ExitStatus)
}

// ExitStatus is how a subprocess terminated. Signal is zero unless the
// process was killed by a signal, in which case Code is -1.
type ExitStatus struct {
	Code   int `json:"code"`
	Signal int `json:"signal"`
}

// Signaled reports whether the process was terminated by a signal
func (s ExitStatus) Signaled() bool {
	return s.Signal != 0
}

func exitStatusOf(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	status := ExitStatus{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = int(ws.Signal())
	}
	return status
}
