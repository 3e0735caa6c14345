package publishers

import "github.com/samvad-hq/trendarr/internal/logger"

// Logger defines the logging surface publishers rely on.
type Logger = logger.Logger

type noopLogger = logger.NopLogger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }
