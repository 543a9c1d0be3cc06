// Package kube wraps kubeconfig contexts and the pod listing API.
//
// Clusters holds the process-wide active context and its client. It is written
// only by Switch and read by every pod listing and session create. Sessions
// capture the context name when they start, so switching never redirects a
// session that is already running.
package kube

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/types"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// ClientFactory builds an API client bound to one kubeconfig context
type ClientFactory func(cfg *clientcmdapi.Config, contextName string) (kubernetes.Interface, error)

// Option configures Clusters
type Option func(*Clusters)

// WithClientFactory replaces the client constructor. Used by tests.
func WithClientFactory(f ClientFactory) Option {
	return func(c *Clusters) { c.newClient = f }
}

// WithBreakerSettings configures the per-context pod listing breaker
func WithBreakerSettings(s BreakerSettings) Option {
	return func(c *Clusters) { c.breakerSettings = s }
}

// Clusters is the cluster context provider
type Clusters struct {
	logger          *logging.Logger
	newClient       ClientFactory
	breakerSettings BreakerSettings

	// switchMu serializes context switches; mu guards the fields below.
	switchMu sync.Mutex
	mu       sync.RWMutex
	cfg      *clientcmdapi.Config
	current  string
	client   kubernetes.Interface
	breakers map[string]*breaker
}

// Load reads kubeconfig with the standard loading rules ($KUBECONFIG,
// ~/.kube/config). A non-empty path overrides them.
func Load(path string, logger *logging.Logger, opts ...Option) (*Clusters, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		rules.ExplicitPath = path
	}

	cfg, err := rules.Load()
	if err != nil {
		return nil, types.KubeconfigFailed(path, err)
	}
	return New(cfg, logger, opts...), nil
}

// New wraps an already parsed kubeconfig
func New(cfg *clientcmdapi.Config, logger *logging.Logger, opts ...Option) *Clusters {
	if cfg == nil {
		cfg = clientcmdapi.NewConfig()
	}
	c := &Clusters{
		logger:          logger.Component("kube"),
		newClient:       restClient,
		breakerSettings: DefaultBreakerSettings(),
		cfg:             cfg,
		breakers:        make(map[string]*breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func restClient(cfg *clientcmdapi.Config, contextName string) (kubernetes.Interface, error) {
	restCfg, err := clientcmd.NewNonInteractiveClientConfig(*cfg, contextName, &clientcmd.ConfigOverrides{}, nil).ClientConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restCfg)
}

// Contexts returns the context names in kubeconfig, sorted
func (c *Clusters) Contexts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.cfg.Contexts))
	for name := range c.cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Current returns the active context name
func (c *Clusters) Current() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current, c.current != ""
}

// Initial picks the context to activate at startup: kubeconfig's
// current-context when it names a known context, else the first one.
func (c *Clusters) Initial() (string, bool) {
	c.mu.RLock()
	preferred := c.cfg.CurrentContext
	_, known := c.cfg.Contexts[preferred]
	c.mu.RUnlock()

	if preferred != "" && known {
		return preferred, true
	}
	names := c.Contexts()
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// Switch makes name the active context. The kubeconfig file is not modified.
func (c *Clusters) Switch(name string) error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.RLock()
	_, ok := c.cfg.Contexts[name]
	cfg := c.cfg
	c.mu.RUnlock()

	if name == "" || !ok {
		return types.ContextSwitchFailed(name, fmt.Errorf("context %q not found in kubeconfig", name))
	}

	client, err := c.newClient(cfg, name)
	if err != nil {
		return types.ContextSwitchFailed(name, err)
	}

	c.mu.Lock()
	prev := c.current
	c.current = name
	c.client = client
	c.cfg.CurrentContext = name
	c.mu.Unlock()

	c.logger.Info("switched context", zap.String("context", name), zap.String("previous", prev))
	return nil
}

// ListPods lists pods in namespace using the active context
func (c *Clusters) ListPods(ctx context.Context, namespace string) ([]types.Pod, error) {
	if namespace == "" {
		namespace = corev1.NamespaceDefault
	}

	c.mu.Lock()
	name, client := c.current, c.client
	if name == "" || client == nil {
		c.mu.Unlock()
		return nil, types.NoContext("")
	}
	guard, ok := c.breakers[name]
	if !ok {
		guard = newBreaker(c.breakerSettings)
		c.breakers[name] = guard
	}
	c.mu.Unlock()

	var list *corev1.PodList
	err := guard.do(func() error {
		var err error
		list, err = client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		return err
	})
	if err != nil {
		c.logger.Warn("error fetching pods",
			zap.String("context", name),
			zap.String("namespace", namespace),
			zap.Error(err))
		return nil, types.ClusterAPIFailed(name, fmt.Errorf("error fetching pods in namespace %s: %w", namespace, err))
	}

	pods := make([]types.Pod, 0, len(list.Items))
	for _, p := range list.Items {
		phase := p.Status.Phase
		if phase == "" {
			phase = corev1.PodUnknown
		}
		pods = append(pods, types.Pod{Name: p.Name, Phase: string(phase)})
	}
	return pods, nil
}
