// Package logging builds the per-package slog loggers.
//
// Every logger writes each record twice: once to the process-wide console
// handler configured with Setup, and once to the OpenTelemetry log bridge for
// the logger's instrumentation scope. Loggers created before Setup is called
// pick up the console handler on their next record, so packages can create
// theirs at init time.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var console atomic.Pointer[slog.Handler]

func init() {
	var h slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	console.Store(&h)
}

// Setup replaces the console handler. format is "text" or "json"; level is any
// value accepted by slog.Level.UnmarshalText ("debug", "info", "warn", "error").
func Setup(w io.Writer, level, format string) error {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text", "console":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	console.Store(&h)
	return nil
}

// New returns a logger for the instrumentation scope, usually the package
// import path. Console records carry the last path element as "component".
func New(scope string) *slog.Logger {
	return slog.New(&teeHandler{
		component: path.Base(scope),
		bridge:    otelslog.NewHandler(scope),
	})
}

type teeHandler struct {
	component string
	bridge    slog.Handler
	// derive replays WithAttrs/WithGroup calls on the current console handler.
	derive []func(slog.Handler) slog.Handler
}

func (h *teeHandler) consoleHandler() slog.Handler {
	c := (*console.Load()).WithAttrs([]slog.Attr{slog.String("component", h.component)})
	for _, fn := range h.derive {
		c = fn(c)
	}
	return c
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*console.Load()).Enabled(ctx, level) || h.bridge.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs error
	if c := h.consoleHandler(); c.Enabled(ctx, record.Level) {
		errs = errors.Join(errs, c.Handle(ctx, record.Clone()))
	}
	if h.bridge.Enabled(ctx, record.Level) {
		errs = errors.Join(errs, h.bridge.Handle(ctx, record))
	}
	return errs
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(h.bridge.WithAttrs(attrs), func(c slog.Handler) slog.Handler { return c.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.with(h.bridge.WithGroup(name), func(c slog.Handler) slog.Handler { return c.WithGroup(name) })
}

func (h *teeHandler) with(bridge slog.Handler, fn func(slog.Handler) slog.Handler) *teeHandler {
	derive := make([]func(slog.Handler) slog.Handler, 0, len(h.derive)+1)
	derive = append(derive, h.derive...)
	derive = append(derive, fn)
	return &teeHandler{component: h.component, bridge: bridge, derive: derive}
}
