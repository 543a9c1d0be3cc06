package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/GriffinCanCode/podshell/internal/events"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/GriffinCanCode/podshell/internal/terminal"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test doubles
// ============================================================================

type switchableContext struct {
	mu   sync.Mutex
	name string
}

func (c *switchableContext) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.name != ""
}

func (c *switchableContext) set(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

type fakeProcess struct {
	opts terminal.SpawnOptions
	pid  int

	// stubborn processes ignore Kill
	stubborn bool

	mu     sync.Mutex
	writes [][]byte
	sizes  []types.Geometry
	kills  int

	once sync.Once
	done chan struct{}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Write(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), data...))
}

func (p *fakeProcess) Resize(g types.Geometry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes = append(p.sizes, g)
}

func (p *fakeProcess) Kill() {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	if !p.stubborn {
		p.exit(terminal.ExitStatus{Code: -1, Signal: int(syscall.SIGKILL)})
	}
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

// exit reports termination once, asynchronously like a real process
func (p *fakeProcess) exit(status terminal.ExitStatus) {
	p.once.Do(func() {
		go func() {
			p.opts.OnExit(status)
			close(p.done)
		}()
	})
}

func (p *fakeProcess) recorded() ([][]byte, []types.Geometry, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes, p.sizes, p.kills
}

type fakeSpawner struct {
	mu       sync.Mutex
	calls    []terminal.SpawnOptions
	procs    []*fakeProcess
	err      error
	gate     chan struct{}
	stubborn bool
}

func (f *fakeSpawner) Spawn(opts terminal.SpawnOptions) (terminal.Process, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakeProcess{opts: opts, pid: 1000 + len(f.procs), stubborn: f.stubborn, done: make(chan struct{})}
	f.procs = append(f.procs, p)
	return p, nil
}

func (f *fakeSpawner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSpawner) proc(i int) *fakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs[i]
}

type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) Deliver(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) of(sid id.SessionID, kind events.Kind) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, e := range c.events {
		if e.SessionID == sid && (kind == "" || e.Kind == kind) {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	manager  *Manager
	spawner  *fakeSpawner
	contexts *switchableContext
	bus      *events.Bus
	sink     *collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		spawner:  &fakeSpawner{},
		contexts: &switchableContext{name: "kind-dev"},
		bus:      events.NewBus(logging.NewNop()),
		sink:     &collector{},
	}
	f.bus.Subscribe(f.sink)
	f.manager = NewManager(Config{WorkingDir: t.TempDir()}, f.spawner, f.contexts, f.bus, logging.NewNop(), nil)
	return f
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.bus.Drain(ctx))
}

func (f *fixture) waitGone(t *testing.T, sid id.SessionID) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := f.manager.Get(sid)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
	f.drain(t)
}

var podA = id.ForPod("default", "pod-a")

func createPodA(t *testing.T, f *fixture) types.SessionInfo {
	t.Helper()
	info, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a", Namespace: "default"})
	require.NoError(t, err)
	return info
}

// ============================================================================
// Create
// ============================================================================

func TestCreateWithoutContextSpawnsNothing(t *testing.T) {
	f := newFixture(t)
	f.contexts.set("")

	_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoContext)
	assert.Contains(t, err.Error(), "default/pod-a")
	assert.Equal(t, 0, f.spawner.callCount())
	assert.Equal(t, 0, f.manager.Count())
}

func TestCreateBuildsExecCommand(t *testing.T) {
	f := newFixture(t)

	info, err := f.manager.Create(context.Background(), CreateRequest{
		Pod:       "web-1",
		Namespace: "shop",
		Shell:     "/bin/bash",
		Geometry:  types.Geometry{Cols: 120, Rows: 40},
	})
	require.NoError(t, err)

	assert.Equal(t, "shop/web-1", info.ID)
	assert.Equal(t, types.StateRunning, info.State)
	assert.Equal(t, "kind-dev", info.Context)
	assert.Equal(t, 1000, info.Pid)

	opts := f.spawner.calls[0]
	assert.Equal(t, "kubectl", opts.Command)
	assert.Equal(t, []string{"exec", "-it", "web-1", "-n=shop", "--context", "kind-dev", "--", "/bin/bash"}, opts.Args)
	assert.Equal(t, types.Geometry{Cols: 120, Rows: 40}, opts.Geometry)
	assert.Contains(t, opts.Env, "TERM=xterm-color")
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)

	info := createPodA(t, f)

	assert.Equal(t, "/bin/sh", info.Shell)
	assert.Equal(t, types.Geometry{Cols: 80, Rows: 30}, info.Geometry)
	assert.Equal(t, "/bin/sh", f.spawner.calls[0].Args[len(f.spawner.calls[0].Args)-1])
}

func TestCreateRejectsInvalidNames(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), CreateRequest{})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = f.manager.Create(context.Background(), CreateRequest{Pod: "a/b"})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Equal(t, 0, f.spawner.callCount())
}

func TestContextIsCapturedAtCreate(t *testing.T) {
	f := newFixture(t)
	first := createPodA(t, f)

	f.contexts.set("kind-prod")
	second, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-b"})
	require.NoError(t, err)

	got, ok := f.manager.Get(podA)
	require.True(t, ok)
	assert.Equal(t, "kind-dev", first.Context)
	assert.Equal(t, "kind-dev", got.Context, "switch does not touch a running session")
	assert.Equal(t, "kind-prod", second.Context)
	assert.Contains(t, f.spawner.calls[0].Args, "kind-dev")
	assert.Contains(t, f.spawner.calls[1].Args, "kind-prod")
}

func TestDuplicateCreateWhileStarting(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.spawner.gate = gate

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.spawner.callCount() == 1 }, 5*time.Second, 5*time.Millisecond)

	info, ok := f.manager.Get(podA)
	require.True(t, ok)
	assert.Equal(t, types.StateStarting, info.State)

	_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
	assert.ErrorIs(t, err, types.ErrDuplicateSession)

	close(gate)
	require.NoError(t, <-firstErr)
	assert.Equal(t, 1, f.spawner.callCount(), "the losing create never spawns")
}

func TestConcurrentCreatesHaveOneWinner(t *testing.T) {
	f := newFixture(t)

	const contenders = 32
	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, types.ErrDuplicateSession)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, f.spawner.callCount())
}

func TestSpawnFailureEmitsSpawnError(t *testing.T) {
	f := newFixture(t)
	f.spawner.err = errors.New("command not found: kubectl")

	_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSpawn)
	assert.Equal(t, 0, f.manager.Count())

	f.drain(t)
	got := f.sink.of(podA, "")
	require.Len(t, got, 1)
	assert.Equal(t, events.KindSpawnError, got[0].Kind)
	assert.Contains(t, got[0].Message, "command not found")

	f.spawner.err = nil
	createPodA(t, f)
}

func TestCreateAfterShutdownIsRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Shutdown(context.Background()))

	_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

// stallingContext blocks Current until released
type stallingContext struct {
	entered chan struct{}
	release chan struct{}
}

func (c *stallingContext) Current() (string, bool) {
	close(c.entered)
	<-c.release
	return "kind-dev", true
}

func TestCreateRacingShutdownSpawnsNothing(t *testing.T) {
	spawner := &fakeSpawner{}
	contexts := &stallingContext{entered: make(chan struct{}), release: make(chan struct{})}
	manager := NewManager(Config{WorkingDir: t.TempDir()}, spawner, contexts,
		events.NewBus(logging.NewNop()), logging.NewNop(), nil)

	errc := make(chan error, 1)
	go func() {
		_, err := manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
		errc <- err
	}()

	<-contexts.entered
	require.NoError(t, manager.Shutdown(context.Background()))
	close(contexts.release)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, types.ErrInvalidRequest)
	case <-time.After(5 * time.Second):
		t.Fatal("create did not return")
	}
	assert.Equal(t, 0, manager.Count())
	assert.Equal(t, 0, spawner.callCount())
}

// ============================================================================
// Running sessions
// ============================================================================

func TestOutputIsPublishedInOrderBeforeExit(t *testing.T) {
	f := newFixture(t)
	createPodA(t, f)
	proc := f.spawner.proc(0)

	var want bytes.Buffer
	for i := 0; i < 100; i++ {
		chunk := []byte{byte('a' + i%26)}
		want.Write(chunk)
		proc.opts.OnData(chunk)
	}
	proc.exit(terminal.ExitStatus{Code: 0})
	f.waitGone(t, podA)

	got := f.sink.of(podA, "")
	require.Len(t, got, 101)
	var stream bytes.Buffer
	for _, e := range got[:100] {
		require.Equal(t, events.KindData, e.Kind)
		stream.Write(e.Data)
	}
	assert.Equal(t, want.Bytes(), stream.Bytes())
	assert.Equal(t, events.KindExit, got[100].Kind)
}

func TestScrollbackKeepsOutput(t *testing.T) {
	f := newFixture(t)
	createPodA(t, f)

	f.spawner.proc(0).opts.OnData([]byte("$ "))
	f.spawner.proc(0).opts.OnData([]byte("ls\r\n"))

	out, ok := f.manager.Scrollback(podA)
	require.True(t, ok)
	assert.Equal(t, "$ ls\r\n", string(out))

	_, ok = f.manager.Scrollback(id.ForPod("default", "missing"))
	assert.False(t, ok)
}

func TestWriteAndResizeReachRunningProcess(t *testing.T) {
	f := newFixture(t)
	createPodA(t, f)

	f.manager.Write(podA, []byte("echo hi\n"))
	f.manager.Resize(podA, types.Geometry{Cols: 100, Rows: 50})
	f.manager.Resize(podA, types.Geometry{})

	writes, sizes, _ := f.spawner.proc(0).recorded()
	assert.Equal(t, [][]byte{[]byte("echo hi\n")}, writes)
	assert.Equal(t, []types.Geometry{{Cols: 100, Rows: 50}}, sizes)

	info, _ := f.manager.Get(podA)
	assert.Equal(t, types.Geometry{Cols: 100, Rows: 50}, info.Geometry)
}

func TestInputForAbsentSessionIsDropped(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() {
		f.manager.Write(podA, []byte("x"))
		f.manager.Resize(podA, types.Geometry{Cols: 10, Rows: 10})
		f.manager.Close(podA)
	})
	f.drain(t)
	assert.Empty(t, f.sink.of(podA, ""))
}

func TestInputWhileStartingIsDropped(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.spawner.gate = gate

	created := make(chan struct{})
	go func() {
		defer close(created)
		_, _ = f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
	}()
	require.Eventually(t, func() bool { return f.spawner.callCount() == 1 }, 5*time.Second, 5*time.Millisecond)

	f.manager.Write(podA, []byte("early"))
	f.manager.Resize(podA, types.Geometry{Cols: 10, Rows: 10})
	close(gate)
	<-created

	writes, sizes, _ := f.spawner.proc(0).recorded()
	assert.Empty(t, writes)
	assert.Empty(t, sizes)
}

// ============================================================================
// Close and exit
// ============================================================================

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	createPodA(t, f)

	assert.True(t, f.manager.Close(podA))
	f.manager.Close(podA)
	f.waitGone(t, podA)
	assert.False(t, f.manager.Close(podA))
	f.drain(t)

	exits := f.sink.of(podA, events.KindExit)
	require.Len(t, exits, 1)
	assert.True(t, exits[0].Exit.Requested)
	assert.Equal(t, int(syscall.SIGKILL), exits[0].Exit.Signal)
	assert.Equal(t, 0, f.manager.Count())
}

func TestSelfExitThenClose(t *testing.T) {
	f := newFixture(t)
	createPodA(t, f)

	f.spawner.proc(0).exit(terminal.ExitStatus{Code: 3})
	f.waitGone(t, podA)
	f.manager.Close(podA)
	f.drain(t)

	exits := f.sink.of(podA, events.KindExit)
	require.Len(t, exits, 1)
	assert.Equal(t, 3, exits[0].Exit.Code)
	assert.False(t, exits[0].Exit.Requested)

	_, _, kills := f.spawner.proc(0).recorded()
	assert.Equal(t, 0, kills)
}

func TestCloseWhileStartingIsHonored(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.spawner.gate = gate

	created := make(chan error, 1)
	go func() {
		_, err := f.manager.Create(context.Background(), CreateRequest{Pod: "pod-a"})
		created <- err
	}()
	require.Eventually(t, func() bool { return f.spawner.callCount() == 1 }, 5*time.Second, 5*time.Millisecond)

	assert.True(t, f.manager.Close(podA))
	close(gate)
	require.NoError(t, <-created)
	f.waitGone(t, podA)

	exits := f.sink.of(podA, events.KindExit)
	require.Len(t, exits, 1)
	assert.True(t, exits[0].Exit.Requested)
}

func TestIdentifierIsReusableAfterExit(t *testing.T) {
	f := newFixture(t)
	createPodA(t, f)
	f.manager.Close(podA)
	f.waitGone(t, podA)

	createPodA(t, f)
	f.spawner.proc(1).opts.OnData([]byte("second"))
	f.drain(t)

	got := f.sink.of(podA, "")
	require.Len(t, got, 2)
	assert.Equal(t, events.KindExit, got[0].Kind, "old exit precedes the successor's output")
	assert.Equal(t, "second", string(got[1].Data))
}

// ============================================================================
// Shutdown
// ============================================================================

func TestShutdownClosesEverySession(t *testing.T) {
	f := newFixture(t)
	for _, pod := range []string{"a", "b", "c"} {
		_, err := f.manager.Create(context.Background(), CreateRequest{Pod: pod})
		require.NoError(t, err)
	}
	require.Len(t, f.manager.List(), 3)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.manager.Shutdown(ctx))

	assert.Equal(t, 0, f.manager.Count())
	f.drain(t)
	for _, pod := range []string{"a", "b", "c"} {
		assert.Len(t, f.sink.of(id.ForPod("default", pod), events.KindExit), 1)
	}
}

func TestShutdownIsBoundedByContext(t *testing.T) {
	f := newFixture(t)
	f.spawner.stubborn = true
	createPodA(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := f.manager.Shutdown(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, _, kills := f.spawner.proc(0).recorded()
	assert.Equal(t, 1, kills)
}

// ============================================================================
// Real PTY
// ============================================================================

// stubKubectl writes a script that drops everything up to "--" and execs
// the remaining arguments, standing in for kubectl exec
func stubKubectl(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubectl")
	script := "#!/bin/sh\nwhile [ \"$#\" -gt 0 ] && [ \"$1\" != \"--\" ]; do shift; done\nshift\nexec \"$@\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestShellSessionEndToEnd(t *testing.T) {
	bus := events.NewBus(logging.NewNop())
	sink := &collector{}
	bus.Subscribe(sink)

	manager := NewManager(
		Config{Command: stubKubectl(t), WorkingDir: t.TempDir()},
		terminal.NewPTYSpawner(logging.NewNop()),
		&switchableContext{name: "kind-dev"},
		bus,
		logging.NewNop(),
		nil,
	)

	info, err := manager.Create(context.Background(), CreateRequest{Pod: "pod-a", Namespace: "default", Shell: "/bin/sh"})
	require.NoError(t, err)
	assert.Equal(t, "default/pod-a", info.ID)

	output := func() string {
		var b bytes.Buffer
		for _, e := range sink.of(podA, events.KindData) {
			b.Write(e.Data)
		}
		return b.String()
	}

	// The quotes keep the typed line itself from matching.
	manager.Write(podA, []byte("echo h''i\n"))
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(output()), []byte("hi\r\n"))
	}, 10*time.Second, 20*time.Millisecond)

	assert.True(t, manager.Close(podA))
	require.Eventually(t, func() bool { return manager.Count() == 0 }, 10*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Drain(ctx))

	all := sink.of(podA, "")
	exits := sink.of(podA, events.KindExit)
	require.Len(t, exits, 1)
	assert.True(t, exits[0].Exit.Requested)
	assert.Equal(t, events.KindExit, all[len(all)-1].Kind, "no data after exit")
}
