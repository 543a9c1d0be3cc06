// Package id provides identifier types for the backend.
//
// Two kinds of identifiers exist:
//   - SessionID: derived, never generated. A terminal session is addressed by the
//     pod it runs in, rendered as "namespace/pod". Kubernetes object names cannot
//     contain "/", so the rendering is unambiguous and reversible.
//   - ConnectionID and RequestID: generated, prefixed ULIDs. Lexicographically
//     sortable and readable in logs (conn_*, req_*).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// SessionID identifies a terminal session by the pod it is attached to
type SessionID string

// ConnectionID identifies a WebSocket peer
type ConnectionID string

// RequestID identifies a consumer request awaiting a response
type RequestID string

const (
	ConnectionPrefix = "conn"
	RequestPrefix    = "req"
)

// separator between namespace and pod in a SessionID
const separator = "/"

// ============================================================================
// Session IDs
// ============================================================================

// ForPod derives the session identifier for a pod
func ForPod(namespace, pod string) SessionID {
	return SessionID(namespace + separator + pod)
}

// Split returns the namespace and pod a session identifier addresses
func (id SessionID) Split() (namespace, pod string, ok bool) {
	namespace, pod, ok = strings.Cut(string(id), separator)
	if !ok || namespace == "" || pod == "" || strings.Contains(pod, separator) {
		return "", "", false
	}
	return namespace, pod, true
}

// ParseSessionID validates a rendered session identifier
func ParseSessionID(s string) (SessionID, error) {
	id := SessionID(s)
	if _, _, ok := id.Split(); !ok {
		return "", fmt.Errorf("invalid session id %q: want namespace/pod", s)
	}
	return id, nil
}

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewConnectionID generates a new connection ID
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().GenerateWithPrefix(ConnectionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id SessionID) String() string    { return string(id) }
func (id ConnectionID) String() string { return string(id) }
func (id RequestID) String() string    { return string(id) }

// Timestamp extracts the generation time from a prefixed or bare ULID
func Timestamp(id string) (time.Time, error) {
	if _, rest, ok := strings.Cut(id, "_"); ok {
		id = rest
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
