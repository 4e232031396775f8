package orchestration

import "github.com/koscakluka/ema-commander/internal/logging"

const scopeName = "github.com/koscakluka/ema-commander/core"

var logger = logging.New(scopeName)
