package feedback

import (
	"github.com/koscakluka/ema-commander/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-commander/core/feedback"

var (
	meter  = otel.Meter(scopeName)
	logger = logging.New(scopeName)

	droppedCounter, _ = meter.Int64Counter("feedback.dropped",
		metric.WithDescription("Announcements dropped because the queue was full"))
)
