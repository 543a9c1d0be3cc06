package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"

	"github.com/GriffinCanCode/podshell/internal/events"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/registry"
	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/GriffinCanCode/podshell/internal/terminal"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/GriffinCanCode/podshell/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when a create request or Config leaves a field empty
const (
	DefaultCommand   = "kubectl"
	DefaultShell     = "/bin/sh"
	DefaultNamespace = "default"
	terminalType     = "TERM=xterm-color"
)

// ContextSource reports the active cluster context
type ContextSource interface {
	Current() (string, bool)
}

// Config configures how sessions are spawned
type Config struct {
	// Command is the exec-capable binary, kubectl by default
	Command    string
	Shell      string
	Namespace  string
	WorkingDir string
	// Env replaces the inherited environment when non-nil
	Env             []string
	ScrollbackBytes int
}

// CreateRequest describes a shell to open
type CreateRequest struct {
	Pod       string         `json:"pod" binding:"required"`
	Namespace string         `json:"namespace"`
	Shell     string         `json:"shell"`
	Geometry  types.Geometry `json:"geometry"`
}

// Manager owns the lifecycle of every terminal session
type Manager struct {
	cfg      Config
	sessions *registry.Registry[*Session]
	spawner  terminal.Spawner
	contexts ContextSource
	events   events.Publisher
	metrics  *monitoring.Metrics
	logger   *logging.Logger

	closing atomic.Bool
}

// NewManager creates a session manager. metrics may be nil.
func NewManager(
	cfg Config,
	spawner terminal.Spawner,
	contexts ContextSource,
	publisher events.Publisher,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
) *Manager {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.WorkingDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.WorkingDir = home
		}
	}
	if cfg.ScrollbackBytes <= 0 {
		cfg.ScrollbackBytes = terminal.DefaultScrollbackSize
	}

	return &Manager{
		cfg:      cfg,
		sessions: registry.New[*Session](),
		spawner:  spawner,
		contexts: contexts,
		events:   publisher,
		metrics:  metrics,
		logger:   logger.Component("session"),
	}
}

// Create opens a shell in a pod. It returns once the spawn outcome is known;
// the shell keeps running after Create returns.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (types.SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.SessionInfo{}, err
	}
	if m.closing.Load() {
		return types.SessionInfo{}, types.InvalidRequest("session manager is shutting down")
	}

	req, err := m.normalize(req)
	if err != nil {
		return types.SessionInfo{}, err
	}
	sid := id.ForPod(req.Namespace, req.Pod)

	contextName, ok := m.contexts.Current()
	if !ok {
		return types.SessionInfo{}, types.NoContext(sid.String())
	}

	s := newSession(sid, req, contextName, m.cfg.ScrollbackBytes)
	if !m.sessions.Insert(sid, s) {
		return types.SessionInfo{}, types.DuplicateSession(sid.String())
	}
	// Shutdown sets closing before listing, so either it sees this entry or
	// this check sees the flag.
	if m.closing.Load() {
		s.finish()
		m.sessions.RemoveIf(sid, s)
		close(s.done)
		return types.SessionInfo{}, types.InvalidRequest("session manager is shutting down")
	}

	log := m.logger.WithFields(
		zap.String("session_id", sid.String()),
		zap.String("context", contextName),
	)

	proc, err := m.spawner.Spawn(terminal.SpawnOptions{
		Command:  m.cfg.Command,
		Args:     execArgs(req, contextName),
		Geometry: s.geometry,
		Dir:      m.cfg.WorkingDir,
		Env:      m.env(),
		OnData:   func(chunk []byte) { m.onData(s, chunk) },
		OnExit:   func(status terminal.ExitStatus) { m.onExit(s, status) },
	})
	if err != nil {
		spawnErr := types.SpawnFailed(sid.String(), err)
		s.finish()
		m.sessions.RemoveIfThen(sid, s, func() {
			m.events.Publish(events.SpawnError(sid, spawnErr))
		})
		close(s.done)
		m.metrics.IncSpawnErrors()
		log.Warn("error creating terminal", zap.Error(err))
		return types.SessionInfo{}, spawnErr
	}

	m.metrics.SessionStarted()
	if s.started(proc) {
		proc.Kill()
	}
	log.Info("terminal created", zap.Int("pid", proc.Pid()), zap.String("shell", req.Shell))
	return s.Info(), nil
}

func (m *Manager) normalize(req CreateRequest) (CreateRequest, error) {
	req.Pod = strings.TrimSpace(req.Pod)
	req.Namespace = strings.TrimSpace(req.Namespace)
	req.Shell = strings.TrimSpace(req.Shell)

	if req.Pod == "" {
		return req, types.InvalidRequest("pod name is required")
	}
	if req.Namespace == "" {
		req.Namespace = m.cfg.Namespace
	}
	if req.Shell == "" {
		req.Shell = m.cfg.Shell
	}

	if err := utils.ValidatePodName(req.Pod); err != nil {
		return req, err
	}
	if err := utils.ValidateNamespace(req.Namespace); err != nil {
		return req, err
	}
	if err := utils.ValidateShell(req.Shell); err != nil {
		return req, err
	}
	if err := utils.ValidateGeometry(req.Geometry); err != nil {
		return req, err
	}
	req.Geometry = req.Geometry.OrDefault()
	return req, nil
}

// execArgs binds the command to the context captured at create time
func execArgs(req CreateRequest, contextName string) []string {
	return []string{
		"exec", "-it", req.Pod,
		"-n=" + req.Namespace,
		"--context", contextName,
		"--", req.Shell,
	}
}

func (m *Manager) env() []string {
	env := m.cfg.Env
	if env == nil {
		env = os.Environ()
	}
	out := make([]string, 0, len(env)+1)
	out = append(out, env...)
	return append(out, terminalType)
}

func (m *Manager) onData(s *Session, chunk []byte) {
	_, _ = s.scrollback.Write(chunk)
	m.metrics.AddTerminalBytes("out", len(chunk))
	m.events.Publish(events.Data(s.id, chunk))
}

// onExit runs once per spawned process, after its last onData
func (m *Manager) onExit(s *Session, status terminal.ExitStatus) {
	requested := s.finish()

	m.sessions.RemoveIfThen(s.id, s, func() {
		m.events.Publish(events.Exit(s.id, status.Code, status.Signal, requested))
	})
	close(s.done)

	reason := "exited"
	if requested {
		reason = "closed"
	}
	m.metrics.SessionEnded(reason)
	m.logger.Info("terminal closed",
		zap.String("session_id", s.id.String()),
		zap.Int("code", status.Code),
		zap.Int("signal", status.Signal),
		zap.Bool("requested", requested))
}

// Write sends input to a running session. Dropped silently otherwise.
func (m *Manager) Write(sid id.SessionID, data []byte) {
	s, ok := m.sessions.Get(sid)
	if !ok {
		return
	}
	proc, ok := s.running()
	if !ok {
		return
	}
	proc.Write(data)
	m.metrics.AddTerminalBytes("in", len(data))
}

// Resize changes a running session's geometry. Dropped silently otherwise.
func (m *Manager) Resize(sid id.SessionID, g types.Geometry) {
	if g.IsZero() || utils.ValidateGeometry(g) != nil {
		return
	}
	s, ok := m.sessions.Get(sid)
	if !ok {
		return
	}
	if proc, ok := s.resize(g); ok {
		proc.Resize(g)
	}
}

// Close kills a session. The exit event that follows carries requested=true
// and acknowledges the close. Closing an absent or closed session is a no-op;
// the result reports whether a live session was found.
func (m *Manager) Close(sid id.SessionID) bool {
	s, ok := m.sessions.Get(sid)
	if !ok {
		return false
	}
	proc, live := s.requestClose()
	if !live {
		return false
	}
	// A nil proc means the spawn is in flight; Create kills it on return.
	if proc != nil {
		proc.Kill()
	}
	return true
}

// Get returns a snapshot of one live session
func (m *Manager) Get(sid id.SessionID) (types.SessionInfo, bool) {
	s, ok := m.sessions.Get(sid)
	if !ok {
		return types.SessionInfo{}, false
	}
	return s.Info(), true
}

// List returns snapshots of every live session, ordered by ID
func (m *Manager) List() []types.SessionInfo {
	sessions := m.sessions.List()
	out := make([]types.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	return out
}

// Scrollback returns the retained output of a live session
func (m *Manager) Scrollback(sid id.SessionID) ([]byte, bool) {
	s, ok := m.sessions.Get(sid)
	if !ok {
		return nil, false
	}
	return s.scrollback.Bytes(), true
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	return m.sessions.Len()
}

// Shutdown rejects new sessions, kills every live one and waits for their
// exit events, bounded by ctx
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closing.Store(true)

	sessions := m.sessions.List()
	if len(sessions) == 0 {
		return nil
	}
	m.logger.Info("closing terminals", zap.Int("count", len(sessions)))

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			if proc, _ := s.requestClose(); proc != nil {
				proc.Kill()
			}
			select {
			case <-s.Done():
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		m.logger.Warn("shutdown deadline reached", zap.Int("remaining", m.sessions.Len()))
	}
	return err
}
