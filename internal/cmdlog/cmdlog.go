package cmdlog

import (
	"time"

	"threadloom/internal/logging"
	"threadloom/internal/metrics"
)

func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error(), "elapsed": elapsed.String()})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"elapsed": elapsed.String()})
	}
	return err
}
