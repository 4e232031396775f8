package keywords

import (
	"github.com/koscakluka/ema-commander/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-commander/core/keywords"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = logging.New(scopeName)

	matchesCounter, _ = meter.Int64Counter("keywords.matches",
		metric.WithDescription("Keyword bindings fired by final transcripts"))
)
