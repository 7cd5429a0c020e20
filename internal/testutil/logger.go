package testutil

import (
	"github.com/celerix-dev/swissqr/internal/logger"
)

func MakeNoopLogger() *logger.Logger {
	return logger.Discard()
}
