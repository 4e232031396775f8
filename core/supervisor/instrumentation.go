package supervisor

import (
	"github.com/koscakluka/ema-commander/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-commander/core/supervisor"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = logging.New(scopeName)

	startedCounter, _ = meter.Int64Counter("tasks.started",
		metric.WithDescription("Task processes spawned"))
	finishedCounter, _ = meter.Int64Counter("tasks.finished",
		metric.WithDescription("Task runs that ended, by reason"))
	escalationsCounter, _ = meter.Int64Counter("tasks.escalations",
		metric.WithDescription("Task processes killed after ignoring the interrupt"))
	orphansCounter, _ = meter.Int64Counter("tasks.orphans",
		metric.WithDescription("Task processes not confirmed dead after a kill"))
)
