package supervisor

import (
	"bufio"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/koscakluka/ema-commander/core/commands"
	"github.com/koscakluka/ema-commander/core/events"
	"github.com/koscakluka/ema-commander/core/tasks"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// launchReady starts script under sh and waits until it prints a line, so
// any traps it installs are in place before the test signals it.
func launchReady(t *testing.T, script string) Process {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer r.Close()

	p, err := ExecLauncher{Stdout: w}.Launch([]string{"sh", "-c", script})
	w.Close()
	if err != nil {
		t.Fatalf("failed to launch: %v", err)
	}
	t.Cleanup(func() {
		_ = p.ForceStop()
		p.Wait(2 * time.Second)
	})

	line := make(chan string, 1)
	go func() {
		s, _ := bufio.NewReader(r).ReadString('\n')
		line <- s
	}()
	select {
	case <-line:
	case <-time.After(5 * time.Second):
		t.Fatalf("process did not become ready")
	}
	return p
}

func TestExecProcessStopsOnInterrupt(t *testing.T) {
	requireShell(t)
	p := launchReady(t, "echo ready; exec sleep 10")

	if !p.Alive() || p.PID() <= 0 {
		t.Fatalf("expected a live process with a pid, got alive=%v pid=%d", p.Alive(), p.PID())
	}
	if err := p.RequestGracefulStop(); err != nil {
		t.Fatalf("unexpected interrupt error %v", err)
	}
	if !p.Wait(2 * time.Second) {
		t.Fatalf("expected process to exit after interrupt")
	}
	if p.Alive() {
		t.Fatalf("expected process to be reaped")
	}
	if code := p.ExitCode(); code != -1 {
		t.Fatalf("expected signalled exit code -1, got %d", code)
	}
	if err := p.RequestGracefulStop(); err == nil {
		t.Fatalf("expected signalling an exited process to fail")
	}
}

func TestExecProcessIgnoringInterruptNeedsKill(t *testing.T) {
	requireShell(t)
	p := launchReady(t, "trap '' INT; echo ready; exec sleep 10")

	if err := p.RequestGracefulStop(); err != nil {
		t.Fatalf("unexpected interrupt error %v", err)
	}
	if p.Wait(200 * time.Millisecond) {
		t.Fatalf("expected process to ignore the interrupt")
	}
	if err := p.ForceStop(); err != nil {
		t.Fatalf("unexpected kill error %v", err)
	}
	if !p.Wait(2 * time.Second) {
		t.Fatalf("expected process to die after kill")
	}
}

func TestExecProcessReportsExitCode(t *testing.T) {
	requireShell(t)

	p, err := ExecLauncher{}.Launch([]string{"sh", "-c", "exit 3"})
	if err != nil {
		t.Fatalf("failed to launch: %v", err)
	}
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected process to exit")
	}
	if code := p.ExitCode(); code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
}

func TestExecLauncherSpawnFailure(t *testing.T) {
	if _, err := (ExecLauncher{}).Launch([]string{"/nonexistent/ema-commander-task"}); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if _, err := (ExecLauncher{}).Launch(nil); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn for empty command, got %v", err)
	}
}

func TestSupervisorTimesOutRealProcess(t *testing.T) {
	requireShell(t)

	table, _ := tasks.NewTable(tasks.Descriptor{Key: "glove", Name: "Pick up and give the glove"})
	launch, err := tasks.NewLaunchTemplate([]string{"sh", "-c", "trap '' INT; exec sleep 10"}, nil, "")
	if err != nil {
		t.Fatalf("failed to build launch template: %v", err)
	}

	rec := &recorder{}
	bus := commands.NewBus()
	s := New(bus, table, launch,
		WithEventEmitter(rec.emit),
		WithTaskTimeout(300*time.Millisecond),
		WithGracePeriod(300*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
		WithIdlePollInterval(10*time.Millisecond),
	)
	runSupervisor(t, s)

	bus.Push(commands.StartTask("glove"))
	started := rec.waitFor(t, events.KindTaskStarted, 1).(events.TaskStarted)
	stopped := rec.waitFor(t, events.KindTaskStopped, 1).(events.TaskStopped)

	if stopped.Reason != events.StopReasonTimeout || !stopped.Forced {
		t.Fatalf("expected forced timeout stop, got %+v", stopped)
	}
	if at := stopped.Timestamp().Sub(started.Timestamp()); at < 600*time.Millisecond || at > 5*time.Second {
		t.Fatalf("expected stop after timeout plus grace, got %s", at)
	}
	if len(rec.ofKind(events.KindTaskOrphaned)) != 0 {
		t.Fatalf("expected the killed process to be reaped")
	}
}
