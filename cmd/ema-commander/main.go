// Command ema-commander starts robot recording tasks by voice.
//
// It listens for task keywords, launches the configured recorder for the
// matching task, and stops it on "stop", on timeout, or when another task is
// requested. Press Ctrl+C to terminate the running task and quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-commander/core"
	"github.com/koscakluka/ema-commander/core/commands"
	"github.com/koscakluka/ema-commander/core/feedback"
	"github.com/koscakluka/ema-commander/core/keywords"
	"github.com/koscakluka/ema-commander/core/supervisor"
	"github.com/koscakluka/ema-commander/core/tasks"
	"github.com/koscakluka/ema-commander/internal/config"
	"github.com/koscakluka/ema-commander/internal/logging"
	"github.com/koscakluka/ema-commander/internal/telemetry"
	"github.com/spf13/afero"
)

var logger = logging.New("github.com/koscakluka/ema-commander/cmd/ema-commander")

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the configuration file (default $"+config.PathEnv+" or "+config.DefaultPath+")")
	flag.Parse()

	cfg, err := config.NewLoader(afero.NewOsFs()).WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down telemetry", "err", err)
		}
	}()

	table, err := tasks.NewTable(cfg.Tasks.Descriptors()...)
	if err != nil {
		logger.Error("invalid task table", "err", err)
		return 1
	}
	launch, err := tasks.NewLaunchTemplate(cfg.Tasks.Command, cfg.Tasks.TaskArgs, cfg.Tasks.RepoID)
	if err != nil {
		logger.Error("invalid launch template", "err", err)
		return 1
	}

	speaker, closeSpeaker, err := newSpeaker(cfg.Speech)
	if err != nil {
		logger.Error("failed to initialize speech", "err", err)
		return 1
	}
	defer closeSpeaker()
	announcements := feedback.New(speaker, feedback.WithQueueSize(cfg.Speech.QueueSize))

	bus := commands.NewBus()
	taskSupervisor := supervisor.New(bus, table, launch,
		supervisor.WithTaskTimeout(cfg.Supervisor.TaskTimeout),
		supervisor.WithGracePeriod(cfg.Supervisor.GracePeriod),
		supervisor.WithKillWait(cfg.Supervisor.KillWait),
		supervisor.WithPollInterval(cfg.Supervisor.PollInterval),
		supervisor.WithIdlePollInterval(cfg.Supervisor.IdlePollInterval),
		supervisor.WithAnnouncer(announcements),
	)
	spotter := keywords.NewSpotter(keywords.NewRegistry(),
		newSourceOpener(cfg.Audio),
		newRecognizerOpener(cfg.Recognition),
		keywords.WithStopGrace(cfg.Recognition.StopGrace),
	)

	opts := []orchestration.OrchestratorOption{
		orchestration.WithFeedback(announcements),
		orchestration.WithStopKeywords(cfg.Tasks.StopKeywords...),
	}
	if cfg.Console.Enabled {
		opts = append(opts, orchestration.WithConsole(os.Stdin))
	}
	commander, err := orchestration.NewOrchestrator(bus, table, spotter, taskSupervisor, opts...)
	if err != nil {
		logger.Error("failed to set up voice commands", "err", err)
		return 1
	}

	fmt.Println(banner(table, cfg.Tasks.StopKeywords))

	if err := commander.Run(ctx); err != nil {
		logger.Error("commander stopped", "err", err)
		return 1
	}
	return 0
}
