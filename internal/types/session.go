package types

import "time"

// Fallback geometry applied per create when the consumer supplies none.
const (
	DefaultCols = 80
	DefaultRows = 30
)

// Geometry is a terminal size in character cells
type Geometry struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// IsZero reports whether no dimension was supplied
func (g Geometry) IsZero() bool {
	return g.Cols <= 0 || g.Rows <= 0
}

// OrDefault returns g, or the fallback geometry when g is unset
func (g Geometry) OrDefault() Geometry {
	if g.IsZero() {
		return Geometry{Cols: DefaultCols, Rows: DefaultRows}
	}
	return g
}

// SessionState is the lifecycle state of a terminal session
type SessionState string

const (
	StateStarting SessionState = "starting"
	StateRunning  SessionState = "running"
	StateClosed   SessionState = "closed"
)

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID        string       `json:"id"`
	Namespace string       `json:"namespace"`
	Pod       string       `json:"pod"`
	Shell     string       `json:"shell"`
	Context   string       `json:"context"`
	Pid       int          `json:"pid,omitempty"`
	Geometry  Geometry     `json:"geometry"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
}

// Pod is a pod listing entry
type Pod struct {
	Name  string `json:"name"`
	Phase string `json:"status"`
}
