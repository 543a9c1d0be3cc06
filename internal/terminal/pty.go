package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/creack/pty"
	"go.uber.org/zap"
)

const (
	readBufferSize = 32 * 1024

	// How long to keep reading after the child is reaped. A grandchild that
	// inherited the PTY slave can otherwise hold the read loop open forever.
	defaultDrainGrace = 2 * time.Second
)

// PTYSpawner starts commands attached to a Unix pseudo-terminal
type PTYSpawner struct {
	logger     *logging.Logger
	drainGrace time.Duration
}

// NewPTYSpawner creates a spawner backed by creack/pty
func NewPTYSpawner(logger *logging.Logger) *PTYSpawner {
	return &PTYSpawner{
		logger:     logger.Component("pty"),
		drainGrace: defaultDrainGrace,
	}
}

// Spawn starts the command. Lookup and PTY errors are returned here.
func (s *PTYSpawner) Spawn(opts SpawnOptions) (Process, error) {
	if opts.Command == "" {
		return nil, errors.New("command is required")
	}
	if opts.OnData == nil || opts.OnExit == nil {
		return nil, errors.New("OnData and OnExit handlers are required")
	}

	path, err := exec.LookPath(opts.Command)
	if err != nil {
		return nil, fmt.Errorf("command not found: %w", err)
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	g := opts.Geometry.OrDefault()
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(g.Rows),
		Cols: uint16(g.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	p := &ptyProcess{
		cmd:        cmd,
		ptmx:       ptmx,
		onData:     opts.OnData,
		onExit:     opts.OnExit,
		logger:     s.logger.WithFields(zap.Int("pid", cmd.Process.Pid)),
		drainGrace: s.drainGrace,
		inputReady: make(chan struct{}, 1),
		readDone:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	go p.readOutput()
	go p.writeInput()
	go p.monitorProcess()

	return p, nil
}

type ptyProcess struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	onData func([]byte)
	onExit func(ExitStatus)
	logger *logging.Logger

	drainGrace time.Duration

	mu         sync.Mutex
	exited     bool
	ptyClosed  bool
	input      [][]byte
	inputReady chan struct{}

	readDone chan struct{}
	done     chan struct{}
}

func (p *ptyProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *ptyProcess) Done() <-chan struct{} {
	return p.done
}

func (p *ptyProcess) Write(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.input = append(p.input, buf)
	p.mu.Unlock()

	select {
	case p.inputReady <- struct{}{}:
	default:
	}
}

func (p *ptyProcess) Resize(g types.Geometry) {
	if g.IsZero() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited || p.ptyClosed {
		return
	}
	if err := pty.Setsize(p.ptmx, &pty.Winsize{Rows: uint16(g.Rows), Cols: uint16(g.Cols)}); err != nil {
		p.logger.Debug("resize failed", zap.Error(err))
	}
}

func (p *ptyProcess) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("kill failed", zap.Error(err))
	}
}

// readOutput forwards PTY output until the master returns an error
// (EIO once the slave side is gone, or a closed file).
func (p *ptyProcess) readOutput() {
	defer close(p.readDone)

	buf := make([]byte, readBufferSize)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.onData(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Debug("pty read ended", zap.Error(err))
			}
			return
		}
	}
}

// writeInput flushes queued input in arrival order
func (p *ptyProcess) writeInput() {
	for {
		select {
		case <-p.inputReady:
		case <-p.readDone:
			return
		}

		p.mu.Lock()
		batch := p.input
		p.input = nil
		p.mu.Unlock()

		for _, chunk := range batch {
			if _, err := p.ptmx.Write(chunk); err != nil {
				p.logger.Debug("pty write failed", zap.Error(err))
				break
			}
		}
	}
}

// monitorProcess reaps the child, drains remaining output, releases the PTY
// and only then reports the exit.
func (p *ptyProcess) monitorProcess() {
	_ = p.cmd.Wait()
	status := exitStatusOf(p.cmd.ProcessState)

	p.mu.Lock()
	p.exited = true
	p.input = nil
	p.mu.Unlock()

	select {
	case <-p.readDone:
	case <-time.After(p.drainGrace):
		p.logger.Debug("pty still open after exit, closing")
	}
	p.closePTY()
	<-p.readDone

	p.onExit(status)
	close(p.done)
}

func (p *ptyProcess) closePTY() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ptyClosed {
		return
	}
	p.ptyClosed = true
	if err := p.ptmx.Close(); err != nil {
		p.logger.Debug("pty close failed", zap.Error(err))
	}
}
