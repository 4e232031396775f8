package commands

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-commander/core/commands"

var (
	meter = otel.Meter(scopeName)

	enqueuedCounter, _ = meter.Int64Counter("commands.enqueued",
		metric.WithDescription("Commands pushed on the command bus"))
)
