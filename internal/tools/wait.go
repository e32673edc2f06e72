// internal/tools/wait.go
package tools

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWaitSeconds = 60
	minWaitSeconds     = 10
	maxWaitSeconds     = 300
)

func waitDuration(in *WaitInput) time.Duration {
	secs := float64(defaultWaitSeconds)
	if in.Seconds != nil {
		secs = math.Min(math.Max(*in.Seconds, minWaitSeconds), maxWaitSeconds)
	}
	return time.Duration(secs * float64(time.Second))
}

// wait blocks the calling goroutine; it is not cancelled by ctx.
func (g *Gateway) wait(in *WaitInput) Result {
	d := waitDuration(in)
	g.logger.Info("⏳ Waiting before next cycle", zap.Duration("duration", d))
	g.sleep(d)
	return ok(map[string]interface{}{
		"message": fmt.Sprintf("Waited %s", d),
		"seconds": d.Seconds(),
	})
}
