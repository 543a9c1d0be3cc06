package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/podshell/internal/events"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/kube"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/session"
	"github.com/GriffinCanCode/podshell/internal/terminal"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Deliver(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func kubeconfig(current string, names ...string) *clientcmdapi.Config {
	cfg := clientcmdapi.NewConfig()
	for _, name := range names {
		cfg.Clusters[name] = &clientcmdapi.Cluster{Server: "https://" + name + ".example"}
		cfg.Contexts[name] = &clientcmdapi.Context{Cluster: name}
	}
	cfg.CurrentContext = current
	return cfg
}

func newTestManager(t *testing.T, cfg *clientcmdapi.Config, loadErr error) (*Manager, *events.Bus, *recordingSink, *monitoring.Metrics) {
	t.Helper()
	logger := logging.NewNop()

	objects := []runtime.Object{
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "web-1", Namespace: "shop"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning},
		},
	}
	factory := func(*clientcmdapi.Config, string) (kubernetes.Interface, error) {
		return fake.NewSimpleClientset(objects...), nil
	}
	clusters := kube.New(cfg, logger, kube.WithClientFactory(factory))

	bus := events.NewBus(logger)
	sink := &recordingSink{}
	bus.Subscribe(sink)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	sessions := session.NewManager(session.Config{}, terminal.NewPTYSpawner(logger), clusters, bus, logger, metrics)
	m := NewManager(Options{
		Clusters:         clusters,
		LoadError:        loadErr,
		Sessions:         sessions,
		Bus:              bus,
		Metrics:          metrics,
		Logger:           logger,
		DefaultNamespace: "shop",
	})
	return m, bus, sink, metrics
}

func drain(t *testing.T, bus *events.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Drain(ctx))
}

func TestSelectInitialPrefersCurrentContext(t *testing.T) {
	m, bus, sink, _ := newTestManager(t, kubeconfig("prod", "dev", "prod"), nil)

	require.NoError(t, m.SelectInitial())
	assert.Equal(t, ContextsView{Contexts: []string{"dev", "prod"}, Current: "prod"}, m.Contexts())

	drain(t, bus)
	assert.Equal(t, []events.Kind{events.KindContextChanged}, sink.kinds())
}

func TestSelectInitialWithoutContexts(t *testing.T) {
	m, _, _, _ := newTestManager(t, nil, nil)

	require.NoError(t, m.SelectInitial())
	assert.Equal(t, ContextsView{Contexts: []string{}}, m.Contexts())
}

func TestSwitchContextFailureIsReported(t *testing.T) {
	m, bus, sink, metrics := newTestManager(t, kubeconfig("", "dev"), nil)

	err := m.SwitchContext("missing")
	assert.ErrorIs(t, err, types.ErrContextSwitch)

	drain(t, bus)
	assert.Empty(t, sink.kinds(), "failed switch announces nothing")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ContextSwitch.WithLabelValues("error")))
}

func TestListPodsUsesDefaultNamespace(t *testing.T) {
	m, _, _, metrics := newTestManager(t, kubeconfig("dev", "dev"), nil)

	_, err := m.ListPods(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrNoContext)

	require.NoError(t, m.SelectInitial())
	pods, err := m.ListPods(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []types.Pod{{Name: "web-1", Phase: "Running"}}, pods)

	pods, err = m.ListPods(context.Background(), "other")
	require.NoError(t, err)
	assert.NotNil(t, pods)
	assert.Empty(t, pods)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PodListCalls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PodListCalls.WithLabelValues("error")))
}

func TestGreeting(t *testing.T) {
	m, _, _, _ := newTestManager(t, kubeconfig("dev", "dev", "prod"), nil)
	require.NoError(t, m.SelectInitial())

	greeting := m.Greeting()
	require.Len(t, greeting, 1)
	assert.Equal(t, events.KindContextList, greeting[0].Kind)
	assert.Equal(t, []string{"dev", "prod"}, greeting[0].Contexts)
	assert.Equal(t, "dev", greeting[0].Context)
}

func TestGreetingIncludesLoadError(t *testing.T) {
	m, _, _, _ := newTestManager(t, nil, errors.New("open /nope: no such file or directory"))

	greeting := m.Greeting()
	require.Len(t, greeting, 2)
	assert.Equal(t, events.KindContextList, greeting[0].Kind)
	assert.Equal(t, events.KindError, greeting[1].Kind)
	assert.Equal(t, types.CodeKubeconfig, greeting[1].Code)
	assert.Contains(t, greeting[1].Message, "no such file")
	assert.ErrorIs(t, m.LoadError(), types.ErrKubeconfig)
}
