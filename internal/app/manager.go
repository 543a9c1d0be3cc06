package app

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/podshell/internal/events"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/session"
	"github.com/GriffinCanCode/podshell/internal/types"
	"go.uber.org/zap"
)

// Clusters is the cluster context provider
type Clusters interface {
	Contexts() []string
	Current() (string, bool)
	Initial() (string, bool)
	Switch(name string) error
	ListPods(ctx context.Context, namespace string) ([]types.Pod, error)
}

// EventBus publishes events and hands them to subscribers
type EventBus interface {
	events.Publisher
	Subscribe(s events.Sink) (unsubscribe func())
}

// ContextsView lists the kubeconfig contexts and the active one
type ContextsView struct {
	Contexts []string `json:"contexts"`
	Current  string   `json:"current"`
}

// Manager coordinates cluster contexts and terminal sessions for the
// HTTP and WebSocket transports
type Manager struct {
	clusters         Clusters
	loadErr          *types.Error
	sessions         *session.Manager
	bus              EventBus
	metrics          *monitoring.Metrics
	logger           *logging.Logger
	defaultNamespace string
}

// Options carries Manager dependencies
type Options struct {
	Clusters Clusters
	// LoadError is the kubeconfig failure seen at startup, if any
	LoadError        error
	Sessions         *session.Manager
	Bus              EventBus
	Metrics          *monitoring.Metrics
	Logger           *logging.Logger
	DefaultNamespace string
}

// NewManager creates an app manager
func NewManager(opts Options) *Manager {
	m := &Manager{
		clusters:         opts.Clusters,
		sessions:         opts.Sessions,
		bus:              opts.Bus,
		metrics:          opts.Metrics,
		logger:           opts.Logger.Component("app"),
		defaultNamespace: opts.DefaultNamespace,
	}
	if m.defaultNamespace == "" {
		m.defaultNamespace = session.DefaultNamespace
	}
	if opts.LoadError != nil {
		var typed *types.Error
		if errors.As(opts.LoadError, &typed) {
			m.loadErr = typed
		} else {
			m.loadErr = types.KubeconfigFailed("", opts.LoadError)
		}
	}
	return m
}

// Sessions returns the session manager
func (m *Manager) Sessions() *session.Manager {
	return m.sessions
}

// Subscribe attaches a sink to the event stream
func (m *Manager) Subscribe(s events.Sink) (unsubscribe func()) {
	return m.bus.Subscribe(s)
}

// LoadError returns the startup kubeconfig failure, or nil
func (m *Manager) LoadError() *types.Error {
	return m.loadErr
}

// Contexts returns the available contexts
func (m *Manager) Contexts() ContextsView {
	current, _ := m.clusters.Current()
	names := m.clusters.Contexts()
	if names == nil {
		names = []string{}
	}
	return ContextsView{Contexts: names, Current: current}
}

// SelectInitial activates kubeconfig's current context, or the first one.
// A kubeconfig without contexts leaves nothing active.
func (m *Manager) SelectInitial() error {
	name, ok := m.clusters.Initial()
	if !ok {
		m.logger.Warn("no contexts found in kubeconfig")
		return nil
	}
	return m.SwitchContext(name)
}

// SwitchContext changes the active context and announces it on the event
// stream. Running sessions keep the context they were created with.
func (m *Manager) SwitchContext(name string) error {
	err := m.clusters.Switch(name)
	m.metrics.RecordContextSwitch(err)
	if err != nil {
		m.logger.Warn("error setting context", zap.String("context", name), zap.Error(err))
		return err
	}
	m.bus.Publish(events.ContextChanged(name))
	return nil
}

// ListPods lists pods in namespace using the active context
func (m *Manager) ListPods(ctx context.Context, namespace string) ([]types.Pod, error) {
	if namespace == "" {
		namespace = m.defaultNamespace
	}
	pods, err := m.clusters.ListPods(ctx, namespace)
	m.metrics.RecordPodList(err)
	if err != nil {
		return nil, err
	}
	if pods == nil {
		pods = []types.Pod{}
	}
	return pods, nil
}

// Greeting is the event sequence sent to a newly connected consumer: the
// context list, followed by the kubeconfig error when startup failed to
// load one.
func (m *Manager) Greeting() []events.Event {
	view := m.Contexts()
	out := []events.Event{events.ContextList(view.Contexts, view.Current)}
	if m.loadErr != nil {
		out = append(out, events.GeneralError(m.loadErr))
	}
	return out
}
