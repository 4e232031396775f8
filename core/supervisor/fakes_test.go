package supervisor

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-commander/core/events"
)

type fakeProcess struct {
	pid  int
	args []string

	ignoreInterrupt bool
	unkillable      bool

	done     chan struct{}
	exitOnce sync.Once
	exitCode atomic.Int32

	interrupts atomic.Int32
	kills      atomic.Int32

	aliveChecks      atomic.Int32
	exitOnAliveCheck atomic.Int32
}

func newFakeProcess(pid int, args []string) *fakeProcess {
	p := &fakeProcess{pid: pid, args: args, done: make(chan struct{})}
	p.exitCode.Store(-1)
	return p
}

func (p *fakeProcess) exit(code int) {
	p.exitOnce.Do(func() {
		p.exitCode.Store(int32(code))
		close(p.done)
	})
}

func (p *fakeProcess) isAlive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Alive() bool {
	n := p.aliveChecks.Add(1)
	if at := p.exitOnAliveCheck.Load(); at > 0 && n >= at {
		p.exit(0)
	}
	return p.isAlive()
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) ExitCode() int         { return int(p.exitCode.Load()) }

func (p *fakeProcess) Wait(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *fakeProcess) RequestGracefulStop() error {
	p.interrupts.Add(1)
	if !p.ignoreInterrupt {
		p.exit(-1)
	}
	return nil
}

func (p *fakeProcess) ForceStop() error {
	p.kills.Add(1)
	if p.unkillable {
		return fmt.Errorf("operation not permitted")
	}
	p.exit(-1)
	return nil
}

type fakeLauncher struct {
	mu        sync.Mutex
	processes []*fakeProcess
	configure func(index int, p *fakeProcess)
	fail      error

	// overlaps counts launches that happened while an earlier process was alive.
	overlaps atomic.Int32
}

func (l *fakeLauncher) Launch(args []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fail != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, l.fail)
	}
	for _, p := range l.processes {
		if p.isAlive() {
			l.overlaps.Add(1)
		}
	}

	p := newFakeProcess(1000+len(l.processes), slices.Clone(args))
	if l.configure != nil {
		l.configure(len(l.processes), p)
	}
	l.processes = append(l.processes, p)
	return p, nil
}

func (l *fakeLauncher) launched() []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.processes)
}

type recorder struct {
	mu            sync.Mutex
	events        []events.Event
	announcements []string
}

func (r *recorder) emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Announce(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announcements = append(r.announcements, text)
	return nil
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *recorder) announced() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.announcements)
}

func (r *recorder) ofKind(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matching []events.Event
	for _, event := range r.events {
		if event.Kind() == kind {
			matching = append(matching, event)
		}
	}
	return matching
}

// waitFor blocks until n events of kind were recorded and returns the nth.
func (r *recorder) waitFor(t *testing.T, kind events.Kind, n int) events.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if matching := r.ofKind(kind); len(matching) >= n {
			return matching[n-1]
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d %s event(s), got kinds %v", n, kind, r.kinds())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func eventually(t *testing.T, timeout time.Duration, condition func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf(format, args...)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
