// Package health periodically samples host CPU and memory usage and the
// process's goroutine count, and reports them through metrics and a debug
// log line. It never feeds $SYS topic
// content — publishing system statistics onto the $SYS tree is the
// concern of the PUBLISH dispatcher, outside this module.
package health

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sink receives periodic samples. *metrics.Metrics satisfies this
// interface directly, so Reporter has no compile-time dependency on the
// metrics package.
type Sink interface {
	ObserveCPUPercent(pct float64)
	ObserveMemoryBytes(bytes uint64)
	ObserveGoroutines(n int)
}

// Reporter samples host-wide CPU and memory usage and the goroutine count on
// an interval and forwards the readings to a Sink; the logger receives the
// goroutine count at debug level and any sampling failures.
type Reporter struct {
	interval time.Duration
	sink     Sink
	logger   zerolog.Logger
}

// NewReporter returns a Reporter that samples every interval.
func NewReporter(interval time.Duration, sink Sink, logger zerolog.Logger) *Reporter {
	return &Reporter{interval: interval, sink: sink, logger: logger}
}

// Run blocks, sampling on a ticker until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *Reporter) sample() {
	pct, err := cpu.Percent(0, false)
	if err != nil {
		r.logger.Warn().Err(err).Msg("health: cpu sample failed")
	} else if len(pct) > 0 {
		r.sink.ObserveCPUPercent(pct[0])
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		r.logger.Warn().Err(err).Msg("health: memory sample failed")
	} else {
		r.sink.ObserveMemoryBytes(vm.Used)
	}

	goroutines := runtime.NumGoroutine()
	r.sink.ObserveGoroutines(goroutines)

	r.logger.Debug().Int("goroutines", goroutines).Msg("health: sample")
}
