package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	// ErrSpawn wraps failures to start a task process.
	ErrSpawn = errors.New("spawn task process")
	// ErrOrphaned is reported when a killed process cannot be confirmed dead.
	ErrOrphaned = errors.New("task process may still be running")

	errProcessNotRunning = errors.New("process not running")
)

// Process is the supervisor's handle on one spawned task.
// Implementations must be safe for concurrent use.
type Process interface {
	PID() int
	// Alive reports whether the process has not yet been reaped.
	Alive() bool
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Wait blocks up to timeout for the process to exit and reports whether it did.
	Wait(timeout time.Duration) bool
	// ExitCode is -1 until the process exits, and also when it was killed by a signal.
	ExitCode() int
	// RequestGracefulStop asks the process to exit (SIGINT).
	RequestGracefulStop() error
	// ForceStop kills the process (SIGKILL).
	ForceStop() error
}

// Launcher spawns task processes. Launch must not wait for the process.
type Launcher interface {
	Launch(args []string) (Process, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(args []string) (Process, error)

func (f LauncherFunc) Launch(args []string) (Process, error) { return f(args) }

// ExecLauncher starts task processes with os/exec. By default the child
// inherits the commander's stdout and stderr.
type ExecLauncher struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

func (l ExecLauncher) Launch(args []string) (Process, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSpawn)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	cmd.Stdout = l.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	p := newExecProcess(cmd)
	if err := p.start(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSpawn, args[0], err)
	}
	return p, nil
}

type execProcess struct {
	cmd *exec.Cmd

	done     chan struct{}
	exited   atomic.Bool
	exitCode atomic.Int32
}

func newExecProcess(cmd *exec.Cmd) *execProcess {
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	p.exitCode.Store(-1)
	return p
}

func (p *execProcess) start() error {
	if err := p.cmd.Start(); err != nil {
		return err
	}
	go p.waitLoop()
	return nil
}

// waitLoop reaps the process and records how it ended.
func (p *execProcess) waitLoop() {
	err := p.cmd.Wait()

	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	p.exitCode.Store(int32(exitCode))
	p.exited.Store(true)
	close(p.done)
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Alive() bool           { return !p.exited.Load() }
func (p *execProcess) Done() <-chan struct{} { return p.done }
func (p *execProcess) ExitCode() int         { return int(p.exitCode.Load()) }

func (p *execProcess) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		return !p.Alive()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

func (p *execProcess) RequestGracefulStop() error { return p.signal(syscall.SIGINT) }
func (p *execProcess) ForceStop() error           { return p.signal(syscall.SIGKILL) }

func (p *execProcess) signal(sig os.Signal) error {
	if !p.Alive() {
		return errProcessNotRunning
	}
	if err := p.cmd.Process.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return errProcessNotRunning
		}
		return fmt.Errorf("send %s to pid %d: %w", sig, p.PID(), err)
	}
	return nil
}
